package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: 127.0.0.1:9999\nbackend: llama\nmodels_dir: /m\nmodel_file: tiny.gguf\nctx_size: 1024\nthreads: 2\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9999" || cfg.Backend != "llama" || cfg.ModelsDir != "/m" ||
		cfg.ModelFile != "tiny.gguf" || cfg.CtxSize != 1024 || cfg.Threads != 2 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":"127.0.0.1:7070","backend":"echo","admin_addr":"127.0.0.1:8080","max_tokens":64}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7070" || cfg.Backend != "echo" || cfg.AdminAddr != "127.0.0.1:8080" || cfg.MaxTokens != 64 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\"127.0.0.1:8081\"\nbackend=\"llama\"\nmodel_path=\"/abs/tiny.gguf\"\nlog_level=\"debug\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8081" || cfg.Backend != "llama" || cfg.ModelPath != "/abs/tiny.gguf" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	p = writeTempFile(t, d, "bad.yaml", "addr: :8080\n: broken\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
	p = writeTempFile(t, d, "bad.json", `{"addr": }`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected JSON unmarshal error")
	}
}

func TestOverlayNonZeroWins(t *testing.T) {
	dst := Default()
	Overlay(&dst, Config{Backend: "llama", Threads: 8})
	if dst.Backend != "llama" || dst.Threads != 8 {
		t.Fatalf("overlay did not apply: %+v", dst)
	}
	if dst.Addr != Default().Addr {
		t.Fatalf("zero field clobbered addr: %+v", dst)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvBackend, "llama")
	t.Setenv(EnvModelFile, "tiny.gguf")
	t.Setenv(EnvThreads, "6")
	t.Setenv(EnvCtxSize, "not-a-number")

	cfg := Default()
	ApplyEnv(&cfg)
	if cfg.Backend != "llama" || cfg.ModelFile != "tiny.gguf" || cfg.Threads != 6 {
		t.Fatalf("env overlay missing: %+v", cfg)
	}
	if cfg.CtxSize != Default().CtxSize {
		t.Fatalf("unparseable env value should be ignored: %+v", cfg)
	}
}

func TestDefaultIsEchoOnLoopback(t *testing.T) {
	cfg := Default()
	if cfg.Backend != "echo" {
		t.Fatalf("default backend must be the guaranteed fallback, got %q", cfg.Backend)
	}
	if cfg.Addr != "127.0.0.1:5555" {
		t.Fatalf("unexpected default addr: %q", cfg.Addr)
	}
}
