package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestScanFindsModels(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.gguf")
	writeFile(t, dir, "a.gguf")
	writeFile(t, dir, "notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "sub.gguf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	models, err := Scan(dir)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d: %v", len(models), models)
	}
	if models[0].ID != "a.gguf" || models[1].ID != "b.gguf" {
		t.Fatalf("expected sorted IDs, got %v", models)
	}
	if !filepath.IsAbs(models[0].Path) {
		t.Fatalf("expected absolute path, got %q", models[0].Path)
	}
}

func TestScanCaseInsensitiveExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "UPPER.GGUF")
	models, err := Scan(dir)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("expected 1 model, got %v", models)
	}
}

func TestScanMissingDirIsEmpty(t *testing.T) {
	models, err := Scan(filepath.Join(t.TempDir(), "never-created"))
	if err != nil {
		t.Fatalf("missing dir must scan as empty, got %v", err)
	}
	if len(models) != 0 {
		t.Fatalf("expected no models, got %v", models)
	}
}
