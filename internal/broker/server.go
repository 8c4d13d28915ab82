// Package broker implements the request-dispatch and streaming-protocol
// engine: the TCP connection handler and the per-request streaming session.
package broker

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"brokerd/internal/backend"
	"brokerd/pkg/protocol"
)

// maxLineBytes bounds one request line. Longer lines fail the connection's
// read loop, which closes only that connection.
const maxLineBytes = 1 << 20

// Server accepts client connections and runs their sessions. Connections run
// fully concurrently; requests on one connection run strictly in sequence,
// so two sessions never interleave bytes on one socket.
type Server struct {
	addr string
	sel  *backend.Selector
	log  zerolog.Logger

	ln      net.Listener
	wg      sync.WaitGroup
	started time.Time

	ready          atomic.Bool
	activeConns    atomic.Int64
	requestsServed atomic.Uint64
}

// New builds a server. The selector is probed lazily on Serve.
func New(addr string, sel *backend.Selector, log zerolog.Logger) *Server {
	return &Server{addr: addr, sel: sel, log: log, started: time.Now()}
}

// Listen binds the TCP listener. Split from Serve so callers (and tests)
// can bind port 0 and read the chosen address back via Addr.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listener address, nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until ctx is canceled, then closes the listener
// and waits for in-flight connections to finish. Accept errors never
// propagate across connections.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	// Select the backend up front so fallback is decided (and logged)
	// before the first request arrives.
	handle := s.sel.Handle()
	s.log.Info().
		Str("addr", s.ln.Addr().String()).
		Str("backend", handle.Kind()).
		Msg("broker listening")
	s.ready.Store(true)

	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn, handle)
		}()
	}
	s.ready.Store(false)
	s.wg.Wait()
	return nil
}

// handleConn reads newline-delimited request lines until EOF or error and
// runs one session per line to completion before reading the next.
func (s *Server) handleConn(ctx context.Context, conn net.Conn, handle *backend.Handle) {
	defer conn.Close()
	log := s.log.With().
		Str("conn", uuid.NewString()[:8]).
		Str("remote", conn.RemoteAddr().String()).
		Logger()
	log.Debug().Msg("client connected")
	connectionsActive.Inc()
	s.activeConns.Add(1)
	defer func() {
		connectionsActive.Dec()
		s.activeConns.Add(-1)
		log.Debug().Msg("client disconnected")
	}()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		req, err := protocol.Parse(sc.Bytes())
		if err != nil {
			// Recovered locally: report and keep the connection open.
			log.Warn().Err(err).Msg("dropping bad request line")
			observeSession(resultBadRequest, time.Now())
			if werr := writeLine(conn, protocol.NewErrorEvent(protocol.CodeBadRequest, err.Error())); werr != nil {
				return
			}
			continue
		}
		if req.Type == protocol.TypePing {
			if werr := writeLine(conn, protocol.NewPongEvent()); werr != nil {
				return
			}
			continue
		}
		s.requestsServed.Add(1)
		sess := newSession(req, handle, conn, log)
		if err := sess.run(ctx); err != nil {
			log.Debug().Err(err).Msg("session aborted, closing connection")
			return
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		log.Debug().Err(err).Msg("read error")
	}
}

func writeLine(conn net.Conn, v any) error {
	_, err := conn.Write(protocol.Encode(v))
	return err
}

// Ready reports whether the server is accepting connections.
func (s *Server) Ready() bool { return s.ready.Load() }

// Snapshot is a read-only projection of server state for status reporting.
type Snapshot struct {
	Backend           string `json:"backend"`
	ModelPath         string `json:"model_path,omitempty"`
	ActiveConnections int64  `json:"active_connections"`
	RequestsServed    uint64 `json:"requests_served"`
	UptimeSeconds     int64  `json:"uptime_seconds"`
	ServerTimeUnix    int64  `json:"server_time_unix"`
}

// Snapshot returns current server state. Safe to call concurrently.
func (s *Server) Snapshot() Snapshot {
	h := s.sel.Handle()
	now := time.Now()
	return Snapshot{
		Backend:           h.Kind(),
		ModelPath:         h.ModelPath(),
		ActiveConnections: s.activeConns.Load(),
		RequestsServed:    s.requestsServed.Load(),
		UptimeSeconds:     int64(now.Sub(s.started).Seconds()),
		ServerTimeUnix:    now.Unix(),
	}
}
