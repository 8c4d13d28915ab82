// Package config resolves broker settings from defaults, an optional config
// file, environment variables, and command-line flags, in that order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the broker.
type Config struct {
	// Addr is the TCP listen address for the wire protocol.
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// AdminAddr is the optional HTTP listen address for health/status/metrics.
	// Empty disables the admin server.
	AdminAddr string `json:"admin_addr" yaml:"admin_addr" toml:"admin_addr"`
	// Backend selects the generation backend: "llama" or "echo".
	Backend string `json:"backend" yaml:"backend" toml:"backend"`
	// ModelsDir is scanned for *.gguf model files.
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	// ModelFile names a model file under ModelsDir.
	ModelFile string `json:"model_file" yaml:"model_file" toml:"model_file"`
	// ModelPath is an absolute model path override; wins over ModelsDir/ModelFile.
	ModelPath string `json:"model_path" yaml:"model_path" toml:"model_path"`
	// CtxSize is the model context window size in tokens.
	CtxSize int `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	// Threads is the native inference thread count.
	Threads int `json:"threads" yaml:"threads" toml:"threads"`
	// MaxTokens caps tokens generated per request.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	// LogLevel is a zerolog level name: debug|info|warn|error.
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Default returns the built-in configuration: echo backend on the loopback
// port the editor plugin expects.
func Default() Config {
	return Config{
		Addr:      "127.0.0.1:5555",
		Backend:   "echo",
		ModelsDir: "~/models/llm",
		CtxSize:   2048,
		Threads:   4,
		MaxTokens: 256,
		LogLevel:  "info",
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Overlay copies every non-zero field of src over dst.
func Overlay(dst *Config, src Config) {
	if src.Addr != "" {
		dst.Addr = src.Addr
	}
	if src.AdminAddr != "" {
		dst.AdminAddr = src.AdminAddr
	}
	if src.Backend != "" {
		dst.Backend = src.Backend
	}
	if src.ModelsDir != "" {
		dst.ModelsDir = src.ModelsDir
	}
	if src.ModelFile != "" {
		dst.ModelFile = src.ModelFile
	}
	if src.ModelPath != "" {
		dst.ModelPath = src.ModelPath
	}
	if src.CtxSize > 0 {
		dst.CtxSize = src.CtxSize
	}
	if src.Threads > 0 {
		dst.Threads = src.Threads
	}
	if src.MaxTokens > 0 {
		dst.MaxTokens = src.MaxTokens
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
}
