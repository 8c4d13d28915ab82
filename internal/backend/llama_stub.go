//go:build !llama

package backend

// No-CGO stub compiled when the 'llama' build tag is absent. Keeps default
// builds and CI CGO-free; the selector falls back to echo when this stub
// reports unavailability. The real adapter lives in llama.go (tagged 'llama').

func openLlama(modelPath string, ctxSize, threads, maxTokens int) (Backend, error) {
	return nil, ErrUnavailable("llama support not built (missing 'llama' build tag)")
}
