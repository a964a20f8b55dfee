package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/capability"
	"inferd/internal/common/fsutil"
	"inferd/internal/config"
	"inferd/internal/httpapi"
	"inferd/internal/service"
	"inferd/internal/store"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	defaultAddr := ":8080"
	if v := os.Getenv("INFERD_ADDR"); v != "" {
		defaultAddr = v
	}

	var (
		addr        string
		configPath  string
		modelsDir   string
		dbPath      string
		logLevel    string
		corsEnabled bool
		corsOrigins []string
		warmup      bool
	)

	root := &cobra.Command{
		Use:           "inferd",
		Short:         "Lazy-loading inference capability daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{}
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			// Flags override file values when set explicitly.
			if cmd.Flags().Changed("addr") || cfg.Addr == "" {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("models-dir") || cfg.ModelsDir == "" {
				cfg.ModelsDir = modelsDir
			}
			if cmd.Flags().Changed("db") || cfg.DBPath == "" {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("cors-enabled") {
				cfg.CORSEnabled = corsEnabled
			}
			if cmd.Flags().Changed("cors-origins") {
				cfg.CORSOrigins = corsOrigins
			}
			return run(cfg, warmup)
		},
	}

	root.Flags().StringVar(&addr, "addr", defaultAddr, "HTTP listen address, e.g. :8080")
	root.Flags().StringVar(&configPath, "config", "", "Optional config file (.yaml/.json/.toml)")
	root.Flags().StringVar(&modelsDir, "models-dir", "~/models/inferd", "Directory holding model artifacts (lexicons, *.gguf)")
	root.Flags().StringVar(&dbPath, "db", "inferd.db", "SQLite database path for results and conversations (empty disables persistence)")
	root.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	root.Flags().BoolVar(&corsEnabled, "cors-enabled", false, "Enable CORS middleware")
	root.Flags().StringSliceVar(&corsOrigins, "cors-origins", []string{"*"}, "Allowed CORS origins")
	root.Flags().BoolVar(&warmup, "warmup", false, "Load all capabilities at startup instead of on first use")

	return root
}

func run(cfg config.Config, warmup bool) error {
	logger := newLogger(cfg.LogLevel)

	if dir, err := fsutil.ExpandHome(cfg.ModelsDir); err == nil && !fsutil.PathExists(dir) {
		logger.Warn().Str("dir", dir).Msg("models dir missing; capabilities load degraded fallbacks and vision will fail")
	}

	app := service.New(service.Config{
		Specs:                    capability.DefaultSpecs(cfg.ModelsDir),
		Logger:                   logger,
		ChatToxicityThreshold:    cfg.ChatToxicityThreshold,
		ContentToxicityThreshold: cfg.ContentToxicityThreshold,
	})
	defer app.Close()

	if warmup {
		for _, spec := range capability.DefaultSpecs(cfg.ModelsDir) {
			if err := app.Registry().Ensure(spec.Name); err != nil {
				logger.Warn().Str("capability", spec.Name).Err(err).Msg("warmup failed")
			}
		}
	}

	var recorder store.Store
	if cfg.DBPath != "" {
		st, err := store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		recorder = st
	}

	httpapi.SetLogger(logger)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins,
		[]string{"GET", "POST", "OPTIONS"}, []string{"Accept", "Content-Type"})

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(app, recorder)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
