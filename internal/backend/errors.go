package backend

// unavailableError signals that the generation backend cannot be opened:
// native library not built in, or model file missing. The selector recovers
// from it by falling back to echo; it never reaches a client.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates the backend cannot be opened.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}

// generationError signals a failure while producing tokens. Tokens already
// produced stay valid; the session surfaces this as a terminal error event.
type generationError struct{ err error }

func (e generationError) Error() string { return "generation failed: " + e.err.Error() }

func (e generationError) Unwrap() error { return e.err }

// ErrGeneration wraps a mid-stream backend failure.
func ErrGeneration(err error) error { return generationError{err: err} }

// IsGeneration reports whether err indicates a mid-stream backend failure.
func IsGeneration(err error) bool {
	_, ok := err.(generationError)
	return ok
}
