//go:build llama

package backend

import (
	"context"
	"io"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBackend wraps an in-process llama.cpp model. The native library is not
// reentrant across concurrent predictions, so callers must serialize Generate
// invocations through the Handle's admission gate.
type llamaBackend struct {
	model     *llama.LLama
	threads   int
	maxTokens int
}

// openLlama loads the model at path. Compiled in only with the 'llama' build
// tag; the untagged build has a stub that always reports unavailability.
func openLlama(modelPath string, ctxSize, threads, maxTokens int) (Backend, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, ErrUnavailable("model path is empty")
	}
	m, err := llama.New(modelPath, llama.SetContext(ctxSize))
	if err != nil {
		return nil, ErrUnavailable("load model: " + err.Error())
	}
	return &llamaBackend{model: m, threads: threads, maxTokens: maxTokens}, nil
}

func (b *llamaBackend) Name() string { return "llama" }

func (b *llamaBackend) Close() error {
	if b.model != nil {
		b.model.Free()
		b.model = nil
	}
	return nil
}

// Generate bridges llama.cpp's blocking token callback into a channel-fed
// stream. Predict runs on its own goroutine so native computation never
// blocks the caller's scheduler; cancellation makes the callback return
// false, which stops the native loop.
func (b *llamaBackend) Generate(ctx context.Context, prompt string) (TokenStream, error) {
	gctx, cancel := context.WithCancel(ctx)
	st := &llamaStream{
		ch:     make(chan string),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	b.model.SetTokenCallback(func(tok string) bool {
		select {
		case st.ch <- tok:
			return true
		case <-gctx.Done():
			return false
		}
	})
	go func() {
		defer close(st.done)
		_, err := b.model.Predict(prompt,
			llama.SetTokens(b.maxTokens),
			llama.SetThreads(b.threads),
		)
		if err != nil && gctx.Err() == nil {
			st.err = ErrGeneration(err)
		}
	}()
	return st, nil
}

// llamaStream delivers tokens produced by a running Predict call.
type llamaStream struct {
	ch     chan string
	done   chan struct{}
	cancel context.CancelFunc
	err    error // written before done is closed, read after
}

func (s *llamaStream) Next(ctx context.Context) (string, error) {
	select {
	case tok := <-s.ch:
		return tok, nil
	case <-s.done:
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *llamaStream) Close() error {
	s.cancel()
	<-s.done
	return nil
}
