// Package registry discovers model files on disk. The broker never fetches
// models itself; an external acquisition step drops *.gguf files into the
// models directory and the registry reports what is there.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"brokerd/internal/common/fsutil"
)

// Model describes one discoverable model file.
type Model struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// Scan lists *.gguf files under dir, sorted by filename. The filename
// (extension included) doubles as the model ID. A missing directory is not
// an error; it scans as empty, matching how a not-yet-run acquisition step
// must be treated.
func Scan(dir string) ([]Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		models = append(models, Model{
			ID:        name,
			Name:      name,
			Path:      filepath.Join(abs, name),
			SizeBytes: size,
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}
