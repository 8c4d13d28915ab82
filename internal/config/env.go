package config

import (
	"os"
	"strconv"
)

// Environment variable names recognized by the broker.
const (
	EnvAddr      = "BROKERD_ADDR"
	EnvAdminAddr = "BROKERD_ADMIN_ADDR"
	EnvBackend   = "BROKERD_BACKEND"
	EnvModelsDir = "BROKERD_MODELS_DIR"
	EnvModelFile = "BROKERD_MODEL_FILE"
	EnvModelPath = "BROKERD_MODEL_PATH"
	EnvCtxSize   = "BROKERD_CTX_SIZE"
	EnvThreads   = "BROKERD_THREADS"
	EnvMaxTokens = "BROKERD_MAX_TOKENS"
	EnvLogLevel  = "BROKERD_LOG_LEVEL"
)

// ApplyEnv overlays BROKERD_* environment variables onto cfg.
// Unset or unparseable values leave the existing field untouched.
func ApplyEnv(cfg *Config) {
	setString(EnvAddr, &cfg.Addr)
	setString(EnvAdminAddr, &cfg.AdminAddr)
	setString(EnvBackend, &cfg.Backend)
	setString(EnvModelsDir, &cfg.ModelsDir)
	setString(EnvModelFile, &cfg.ModelFile)
	setString(EnvModelPath, &cfg.ModelPath)
	setInt(EnvCtxSize, &cfg.CtxSize)
	setInt(EnvThreads, &cfg.Threads)
	setInt(EnvMaxTokens, &cfg.MaxTokens)
	setString(EnvLogLevel, &cfg.LogLevel)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return
	}
	*dst = n
}
