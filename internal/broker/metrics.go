package broker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	connectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "brokerd",
			Subsystem: "tcp",
			Name:      "connections_active",
			Help:      "Currently open client connections",
		},
	)

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "brokerd",
			Subsystem: "session",
			Name:      "requests_total",
			Help:      "Total requests by terminal result",
		},
		[]string{"result"},
	)

	tokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "brokerd",
			Subsystem: "session",
			Name:      "tokens_total",
			Help:      "Total tokens produced across all sessions",
		},
	)

	sessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "brokerd",
			Subsystem: "session",
			Name:      "duration_seconds",
			Help:      "Session duration from dispatch to terminal event",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(connectionsActive, requestsTotal, tokensTotal, sessionDuration)
}

// Terminal result labels. Error results reuse the wire error codes;
// "disconnect" covers sessions cut short by the client going away.
const (
	resultOK         = "ok"
	resultBadRequest = "bad_request"
	resultDisconnect = "disconnect"
)

func observeSession(result string, start time.Time) {
	requestsTotal.WithLabelValues(result).Inc()
	sessionDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}
