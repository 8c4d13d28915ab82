package backend

import (
	"context"
	"io"
	"strings"
	"sync"
)

// echoBackend re-segments the prompt into whitespace-delimited words and
// yields them unchanged, each non-initial word prefixed with a single space so
// the concatenation of all tokens reproduces the word-joined prompt exactly.
// No file or network dependency; always available.
type echoBackend struct{}

// NewEcho returns the echo backend.
func NewEcho() Backend { return echoBackend{} }

func (echoBackend) Name() string { return "echo" }

func (echoBackend) Generate(ctx context.Context, prompt string) (TokenStream, error) {
	words := strings.Fields(prompt)
	tokens := make([]string, len(words))
	for i, w := range words {
		if i == 0 {
			tokens[i] = w
			continue
		}
		tokens[i] = " " + w
	}
	return &sliceStream{tokens: tokens}, nil
}

func (echoBackend) Close() error { return nil }

// sliceStream serves tokens from a pre-computed slice. Safe for the
// single-consumer use the session makes of it.
type sliceStream struct {
	mu     sync.Mutex
	tokens []string
	pos    int
	closed bool
}

func (s *sliceStream) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pos >= len(s.tokens) {
		return "", io.EOF
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok, nil
}

func (s *sliceStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
