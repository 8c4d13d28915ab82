package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home) // windows

	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/tmp", "/tmp"},
		{"~", home},
		{"~/models", filepath.Join(home, "models")},
	}
	for _, tc := range cases {
		got, err := ExpandHome(tc.in)
		if err != nil {
			t.Fatalf("ExpandHome(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ExpandHome(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f.gguf")
	if FileExists(p) {
		t.Fatalf("expected false for missing file")
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !FileExists(p) {
		t.Fatalf("expected true for existing file")
	}
	if FileExists(dir) {
		t.Fatalf("expected false for a directory")
	}
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	if !DirExists(dir) {
		t.Fatalf("expected true for existing dir")
	}
	if DirExists(filepath.Join(dir, "missing")) {
		t.Fatalf("expected false for missing dir")
	}
}
