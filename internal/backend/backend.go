// Package backend provides the text-generation capability behind the broker:
// a llama.cpp-backed generation variant (build tag 'llama') and a
// deterministic echo variant used for tests and as the guaranteed fallback.
package backend

import "context"

// Backend turns a prompt into a finite sequence of output tokens.
// Implementations are shared read-only across concurrent sessions.
type Backend interface {
	// Name identifies the variant ("llama" or "echo").
	Name() string
	// Generate starts a new token stream for the prompt. Streams are finite
	// and single-use; a new call creates a new stream. Implementations must
	// return promptly and do any blocking work inside the stream.
	Generate(ctx context.Context, prompt string) (TokenStream, error)
	// Close releases backend resources. Called once at process shutdown.
	Close() error
}

// TokenStream yields the tokens of one generation, in order. Cancellation is
// explicit: canceling the context passed to Next, or calling Close, stops the
// underlying production promptly.
type TokenStream interface {
	// Next blocks until the next token is available and returns it.
	// It returns io.EOF once the sequence is exhausted.
	Next(ctx context.Context) (string, error)
	// Close cancels any pending production and releases stream resources.
	Close() error
}
