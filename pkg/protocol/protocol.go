// Package protocol defines the newline-delimited JSON wire protocol spoken
// between editor clients and the broker. One JSON object per line, UTF-8.
package protocol

import (
	"encoding/json"
	"strings"
)

// Request kinds accepted on the wire.
const (
	TypeCompletion = "completion"
	TypePing       = "ping"
)

// Event discriminators emitted by the broker.
const (
	TypeToken = "token"
	TypeError = "error"
	TypePong  = "pong"
)

// Error codes carried by ErrorEvent.
const (
	CodeBadRequest         = "bad_request"
	CodeBackendUnavailable = "backend_unavailable"
	CodeBackendError       = "backend_error"
	CodeInternal           = "internal"
)

// Request is one client request line. Unknown fields are ignored.
type Request struct {
	// Request kind. Defaults to "completion" when absent.
	Type string `json:"type,omitempty"`
	// Prompt text to complete. Required for completion requests.
	Prompt string `json:"prompt"`
	// If true, emit one token event per token before the terminal event.
	Stream bool `json:"stream,omitempty"`
}

// TokenEvent is one incremental piece of generated text.
// Indices are 0-based and contiguous within a session.
type TokenEvent struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Index int    `json:"index"`
}

// CompletionEvent is the terminal event of a successful session. Text is the
// concatenation, in index order, of every token the backend produced.
type CompletionEvent struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// ErrorEvent is the terminal event of a failed session, or the reply to an
// unparseable line.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// PongEvent answers a ping request.
type PongEvent struct {
	Type string `json:"type"`
}

// NewTokenEvent builds a token event for the given piece of text.
func NewTokenEvent(text string, index int) TokenEvent {
	return TokenEvent{Type: TypeToken, Text: text, Index: index}
}

// NewCompletionEvent builds the terminal completion event.
func NewCompletionEvent(text string, tokenCount int) CompletionEvent {
	return CompletionEvent{Type: TypeCompletion, Text: text, TokenCount: tokenCount}
}

// NewErrorEvent builds a terminal error event.
func NewErrorEvent(code, message string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Message: message, Code: code}
}

// NewPongEvent builds a pong reply.
func NewPongEvent() PongEvent { return PongEvent{Type: TypePong} }

// Encode serializes an event or request to one compact JSON line,
// newline terminator included.
func Encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// All protocol types marshal without error; anything else is a
		// programming mistake upstream.
		b = []byte(`{"type":"error","message":"encode failure","code":"internal"}`)
	}
	return append(b, '\n')
}

// badRequestError marks input rejected during parsing/validation.
type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

// errBadRequest constructs a badRequestError.
func errBadRequest(msg string) error { return badRequestError{msg: msg} }

// IsBadRequest reports whether err came from request validation.
func IsBadRequest(err error) bool {
	_, ok := err.(badRequestError)
	return ok
}

// Parse decodes and validates one request line. It is pure: no side effects,
// no partial state. A returned error always satisfies IsBadRequest.
func Parse(line []byte) (Request, error) {
	var req Request
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return req, errBadRequest("empty request line")
	}
	if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
		return req, errBadRequest("malformed JSON payload")
	}
	if req.Type == "" {
		req.Type = TypeCompletion
	}
	switch req.Type {
	case TypePing:
		return req, nil
	case TypeCompletion:
		if strings.TrimSpace(req.Prompt) == "" {
			return req, errBadRequest("prompt is required")
		}
		return req, nil
	default:
		return req, errBadRequest("unsupported request type: " + req.Type)
	}
}
