package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"brokerd/internal/admin"
	"brokerd/internal/backend"
	"brokerd/internal/broker"
	"brokerd/internal/config"
	"brokerd/internal/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd wires configuration precedence: defaults, then config file,
// then BROKERD_* environment, then explicitly set flags.
func newRootCmd() *cobra.Command {
	defaults := config.Default()
	config.ApplyEnv(&defaults)

	cfg := defaults
	var cfgPath string

	cmd := &cobra.Command{
		Use:          "brokerd",
		Short:        "Local completion broker speaking newline-delimited JSON over TCP",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved := config.Default()
			if cfgPath != "" {
				fileCfg, err := config.Load(cfgPath)
				if err != nil {
					return err
				}
				config.Overlay(&resolved, fileCfg)
			}
			config.ApplyEnv(&resolved)

			fl := cmd.Flags()
			if fl.Changed("addr") {
				resolved.Addr = cfg.Addr
			}
			if fl.Changed("admin-addr") {
				resolved.AdminAddr = cfg.AdminAddr
			}
			if fl.Changed("backend") {
				resolved.Backend = cfg.Backend
			}
			if fl.Changed("models-dir") {
				resolved.ModelsDir = cfg.ModelsDir
			}
			if fl.Changed("model-file") {
				resolved.ModelFile = cfg.ModelFile
			}
			if fl.Changed("model-path") {
				resolved.ModelPath = cfg.ModelPath
			}
			if fl.Changed("ctx-size") {
				resolved.CtxSize = cfg.CtxSize
			}
			if fl.Changed("threads") {
				resolved.Threads = cfg.Threads
			}
			if fl.Changed("max-tokens") {
				resolved.MaxTokens = cfg.MaxTokens
			}
			if fl.Changed("log-level") {
				resolved.LogLevel = cfg.LogLevel
			}
			return run(resolved)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&cfgPath, "config", "", "Optional config file (.yaml, .json or .toml)")
	fl.StringVar(&cfg.Addr, "addr", cfg.Addr, "TCP listen address for the wire protocol")
	fl.StringVar(&cfg.AdminAddr, "admin-addr", cfg.AdminAddr, "HTTP listen address for health/status/metrics (empty disables)")
	fl.StringVar(&cfg.Backend, "backend", cfg.Backend, "Generation backend: llama|echo")
	fl.StringVar(&cfg.ModelsDir, "models-dir", cfg.ModelsDir, "Directory scanned for *.gguf model files")
	fl.StringVar(&cfg.ModelFile, "model-file", cfg.ModelFile, "Model filename under the models dir")
	fl.StringVar(&cfg.ModelPath, "model-path", cfg.ModelPath, "Absolute model path override")
	fl.IntVar(&cfg.CtxSize, "ctx-size", cfg.CtxSize, "Model context window size")
	fl.IntVar(&cfg.Threads, "threads", cfg.Threads, "Inference thread count")
	fl.IntVar(&cfg.MaxTokens, "max-tokens", cfg.MaxTokens, "Maximum tokens generated per request")
	fl.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error")

	return cmd
}

func run(cfg config.Config) error {
	logger := newLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := registry.NewWatcher(cfg.ModelsDir, logger)
	if err != nil {
		return err
	}
	defer watcher.Close()
	go watcher.Run(ctx)

	sel := backend.NewSelector(backend.Config{
		Kind:      cfg.Backend,
		ModelsDir: cfg.ModelsDir,
		ModelFile: cfg.ModelFile,
		ModelPath: cfg.ModelPath,
		CtxSize:   cfg.CtxSize,
		Threads:   cfg.Threads,
		MaxTokens: cfg.MaxTokens,
	}, logger)

	srv := broker.New(cfg.Addr, sel, logger)
	if err := srv.Listen(); err != nil {
		return err
	}

	var adminSrv *http.Server
	if cfg.AdminAddr != "" {
		adminSrv = &http.Server{Addr: cfg.AdminAddr, Handler: admin.NewRouter(srv, watcher)}
		go func() {
			logger.Info().Str("addr", cfg.AdminAddr).Msg("admin listening")
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("admin server error")
			}
		}()
	}

	serveErr := srv.Serve(ctx)

	if adminSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := adminSrv.Shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("admin shutdown error")
		}
	}
	if err := sel.Handle().Close(); err != nil {
		logger.Warn().Err(err).Msg("backend close error")
	}
	logger.Info().Msg("broker stopped")
	return serveErr
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
