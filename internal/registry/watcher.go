package registry

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"brokerd/internal/common/fsutil"
)

// Watcher keeps an in-memory model list current as files appear in or vanish
// from the models directory. It only feeds status reporting; backend
// selection is memoized at startup and is never re-triggered by a change.
type Watcher struct {
	dir string
	log zerolog.Logger

	mu     sync.RWMutex
	models []Model

	fw *fsnotify.Watcher
}

// NewWatcher scans dir once and, when the directory exists, starts watching
// it for changes. Run must be called to process events.
func NewWatcher(dir string, log zerolog.Logger) (*Watcher, error) {
	models, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	w := &Watcher{dir: dir, log: log, models: models}

	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	if !fsutil.DirExists(base) {
		log.Debug().Str("dir", base).Msg("models dir absent, registry watch disabled")
		return w, nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(base); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w.fw = fw
	return w, nil
}

// Models returns a copy of the current model list.
func (w *Watcher) Models() []Model {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Model, len(w.models))
	copy(out, w.models)
	return out
}

// Run processes filesystem events until ctx is canceled. A rescan is cheap,
// so any relevant event triggers a full one rather than patching the list.
func (w *Watcher) Run(ctx context.Context) {
	if w.fw == nil {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !relevantEvent(ev) {
				continue
			}
			w.rescan()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("registry watch error")
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	if w.fw == nil {
		return nil
	}
	return w.fw.Close()
}

func (w *Watcher) rescan() {
	models, err := Scan(w.dir)
	if err != nil {
		w.log.Warn().Err(err).Msg("registry rescan failed")
		return
	}
	w.mu.Lock()
	w.models = models
	w.mu.Unlock()
	w.log.Debug().Int("models", len(models)).Msg("registry refreshed")
}

func relevantEvent(ev fsnotify.Event) bool {
	if !strings.HasSuffix(strings.ToLower(filepath.Base(ev.Name)), ".gguf") {
		return false
	}
	return ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0
}
