package backend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeModelFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("gguf"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func testSelector(t *testing.T, cfg Config) *Selector {
	t.Helper()
	return NewSelector(cfg, zerolog.Nop())
}

func TestSelectEchoDirect(t *testing.T) {
	h := testSelector(t, Config{Kind: KindEcho}).Handle()
	if h.Kind() != KindEcho {
		t.Fatalf("expected echo, got %s", h.Kind())
	}
}

func TestSelectLlamaMissingModelFallsBack(t *testing.T) {
	cfg := Config{Kind: KindLlama, ModelsDir: t.TempDir(), ModelFile: "absent.gguf"}
	h := testSelector(t, cfg).Handle()
	if h.Kind() != KindEcho {
		t.Fatalf("expected echo fallback, got %s", h.Kind())
	}
}

func TestSelectLlamaWithoutBuildTagFallsBack(t *testing.T) {
	// Without the 'llama' build tag openLlama always reports unavailability,
	// so even an existing model file must end in echo fallback.
	dir := t.TempDir()
	writeModelFile(t, dir, "tiny.gguf")
	cfg := Config{Kind: KindLlama, ModelsDir: dir, ModelFile: "tiny.gguf"}
	h := testSelector(t, cfg).Handle()
	if h.Kind() != KindEcho {
		t.Fatalf("expected echo fallback, got %s", h.Kind())
	}
}

func TestSelectionIsMemoized(t *testing.T) {
	s := testSelector(t, Config{Kind: KindEcho})
	if s.Handle() != s.Handle() {
		t.Fatalf("expected the same handle on every call")
	}
}

func TestResolveModelPathPrecedence(t *testing.T) {
	dir := t.TempDir()
	inDir := writeModelFile(t, dir, "a.gguf")
	writeModelFile(t, dir, "b.gguf")
	override := writeModelFile(t, t.TempDir(), "override.gguf")

	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"absolute override wins", Config{ModelPath: override, ModelsDir: dir, ModelFile: "a.gguf"}, override},
		{"filename under dir", Config{ModelsDir: dir, ModelFile: "a.gguf"}, inDir},
		{"first model in dir", Config{ModelsDir: dir}, inDir},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := testSelector(t, tc.cfg).resolveModelPath()
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestResolveModelPathUnavailable(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"override missing", Config{ModelPath: filepath.Join(t.TempDir(), "nope.gguf")}},
		{"file missing", Config{ModelsDir: t.TempDir(), ModelFile: "nope.gguf"}},
		{"dir empty", Config{ModelsDir: t.TempDir()}},
		{"dir absent", Config{ModelsDir: filepath.Join(t.TempDir(), "nodir")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testSelector(t, tc.cfg).resolveModelPath()
			if err == nil || !IsUnavailable(err) {
				t.Fatalf("expected unavailable error, got %v", err)
			}
		})
	}
}
