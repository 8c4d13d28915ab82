package backend

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"brokerd/internal/common/fsutil"
	"brokerd/internal/registry"
)

// KindLlama and KindEcho name the two backend variants in configuration.
const (
	KindLlama = "llama"
	KindEcho  = "echo"
)

// Config carries the backend tunables resolved from the process
// configuration. Immutable once handed to a Selector.
type Config struct {
	Kind      string
	ModelsDir string
	ModelFile string
	ModelPath string // absolute path override; wins over ModelsDir/ModelFile
	CtxSize   int
	Threads   int
	MaxTokens int
}

// Handle is the process-wide selected backend plus its configuration.
// Created once, shared read-only by all sessions, never re-selected.
type Handle struct {
	backend   Backend
	kind      string
	modelPath string
	gate      *gate // non-nil when generations must be serialized
}

// NewHandle wraps an already-opened backend. The selector builds handles this
// way; tests use it to inject fake backends. serialize enables the FIFO
// admission gate for non-reentrant backends.
func NewHandle(b Backend, kind, modelPath string, serialize bool) *Handle {
	h := &Handle{backend: b, kind: kind, modelPath: modelPath}
	if serialize {
		h.gate = newGate()
	}
	return h
}

// Backend returns the selected variant.
func (h *Handle) Backend() Backend { return h.backend }

// Kind returns the selected variant's name ("llama" or "echo").
func (h *Handle) Kind() string { return h.kind }

// ModelPath returns the resolved model file path, empty for echo.
func (h *Handle) ModelPath() string { return h.modelPath }

// Acquire reserves the right to run one generation. For the llama variant
// this serializes concurrent sessions FIFO against the non-reentrant native
// runtime; for echo it is a no-op. The release func must be called once.
func (h *Handle) Acquire(ctx context.Context) (func(), error) {
	if h.gate == nil {
		return func() {}, nil
	}
	return h.gate.acquire(ctx)
}

// Close releases the selected backend.
func (h *Handle) Close() error { return h.backend.Close() }

// Selector memoizes backend selection for the process lifetime. Selection
// never fails outright: if the configured generation backend cannot be
// opened, it logs a warning and falls back to echo.
type Selector struct {
	cfg  Config
	log  zerolog.Logger
	once sync.Once
	h    *Handle
}

// NewSelector builds a selector; no probing happens until Handle is called.
func NewSelector(cfg Config, log zerolog.Logger) *Selector {
	return &Selector{cfg: cfg, log: log}
}

// Handle returns the selected backend, performing selection on first call.
func (s *Selector) Handle() *Handle {
	s.once.Do(func() { s.h = s.selectBackend() })
	return s.h
}

func (s *Selector) selectBackend() *Handle {
	if s.cfg.Kind != KindLlama {
		s.log.Info().Str("backend", KindEcho).Msg("backend selected")
		return NewHandle(NewEcho(), KindEcho, "", false)
	}
	path, err := s.resolveModelPath()
	if err == nil {
		var b Backend
		b, err = openLlama(path, s.cfg.CtxSize, s.cfg.Threads, s.cfg.MaxTokens)
		if err == nil {
			s.log.Info().Str("backend", KindLlama).Str("model", path).Msg("backend selected")
			return NewHandle(b, KindLlama, path, true)
		}
	}
	s.log.Warn().Err(err).Msg("generation backend unavailable, falling back to echo")
	return NewHandle(NewEcho(), KindEcho, "", false)
}

// resolveModelPath picks the model file: explicit absolute path override,
// then configured filename under the models dir, then the first model the
// registry finds there. A path that does not resolve to an existing file
// means the backend is unavailable.
func (s *Selector) resolveModelPath() (string, error) {
	if s.cfg.ModelPath != "" {
		p, err := fsutil.ExpandHome(s.cfg.ModelPath)
		if err != nil {
			return "", ErrUnavailable("model path: " + err.Error())
		}
		if !fsutil.FileExists(p) {
			return "", ErrUnavailable("model file not found: " + p)
		}
		return p, nil
	}
	dir, err := fsutil.ExpandHome(s.cfg.ModelsDir)
	if err != nil {
		return "", ErrUnavailable("models dir: " + err.Error())
	}
	if s.cfg.ModelFile != "" {
		p := filepath.Join(dir, s.cfg.ModelFile)
		if !fsutil.FileExists(p) {
			return "", ErrUnavailable("model file not found: " + p)
		}
		return p, nil
	}
	models, err := registry.Scan(dir)
	if err != nil {
		return "", ErrUnavailable("scan models dir: " + err.Error())
	}
	if len(models) == 0 {
		return "", ErrUnavailable("no model files in " + dir)
	}
	return models[0].Path, nil
}
