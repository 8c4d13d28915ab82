package broker

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"brokerd/internal/backend"
	"brokerd/pkg/protocol"
)

// sessionState tracks a session's lifecycle.
type sessionState int

const (
	stateCreated sessionState = iota
	stateDispatching
	stateStreaming
	stateAggregating
	stateTerminated
)

// session drives one parsed request through dispatch, streaming and
// aggregation: ordered token events (when the request asked to stream),
// a running aggregate, and exactly one terminal event. Single-use.
type session struct {
	id     string
	req    protocol.Request
	handle *backend.Handle
	w      io.Writer
	log    zerolog.Logger

	state sessionState
	index int
	agg   strings.Builder
}

func newSession(req protocol.Request, h *backend.Handle, w io.Writer, log zerolog.Logger) *session {
	id := uuid.NewString()
	return &session{
		id:     id,
		req:    req,
		handle: h,
		w:      w,
		log:    log.With().Str("session", id[:8]).Logger(),
		state:  stateCreated,
	}
}

// run executes the session to its terminal event. The returned error is
// connection-level (failed socket write or cancellation) and means the
// connection must be closed. Request-level failures are reported to the
// client as an error event and return nil, leaving the connection usable.
func (s *session) run(ctx context.Context) error {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.state = stateDispatching
	release, err := s.handle.Acquire(ctx)
	if err != nil {
		s.state = stateTerminated
		observeSession(resultDisconnect, start)
		return err
	}
	defer release()

	stream, err := s.handle.Backend().Generate(ctx, s.req.Prompt)
	if err != nil {
		return s.terminate(start, err)
	}
	defer stream.Close()

	s.state = stateStreaming
	for {
		tok, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				// Canceled: no further writes attempted.
				s.state = stateTerminated
				observeSession(resultDisconnect, start)
				return ctx.Err()
			}
			return s.terminate(start, err)
		}
		s.agg.WriteString(tok)
		if s.req.Stream {
			if werr := s.writeEvent(protocol.NewTokenEvent(tok, s.index)); werr != nil {
				// Client gone; stop the backend before anything else.
				cancel()
				s.state = stateTerminated
				observeSession(resultDisconnect, start)
				return werr
			}
		}
		s.index++
		tokensTotal.Inc()
	}

	s.state = stateAggregating
	done := protocol.NewCompletionEvent(s.agg.String(), s.index)
	s.state = stateTerminated
	if werr := s.writeEvent(done); werr != nil {
		observeSession(resultDisconnect, start)
		return werr
	}
	observeSession(resultOK, start)
	s.log.Debug().Int("tokens", s.index).Dur("dur", time.Since(start)).Msg("session complete")
	return nil
}

// terminate maps a backend failure to a terminal error event. Tokens already
// flushed are never retracted.
func (s *session) terminate(start time.Time, err error) error {
	code := protocol.CodeInternal
	switch {
	case backend.IsUnavailable(err):
		code = protocol.CodeBackendUnavailable
	case backend.IsGeneration(err):
		code = protocol.CodeBackendError
	}
	s.state = stateTerminated
	s.log.Error().Err(err).Str("code", code).Msg("session failed")
	observeSession(code, start)
	if werr := s.writeEvent(protocol.NewErrorEvent(code, err.Error())); werr != nil {
		return werr
	}
	return nil
}

func (s *session) writeEvent(v any) error {
	_, err := s.w.Write(protocol.Encode(v))
	return err
}
