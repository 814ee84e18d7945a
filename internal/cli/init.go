// Package cli holds the start-up and shutdown steps the matchday binaries
// share.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"matchday/internal/config"
	applog "matchday/internal/log"
	"matchday/internal/storage"
)

// SetupLogger builds the process logger and installs it as slog's default.
// An unknown level falls back to info; Validate reports it separately.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	lc := applog.DefaultConfig()
	if level, err := applog.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Format = cfg.LogFormat
	lc.Component = component

	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile reads ENV_FILE, or .env, into the environment without
// overriding variables already set. A missing file is not an error.
func LoadEnvFile() {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path)
}

// LoadAndValidateConfig exits the process when the configuration is invalid.
func LoadAndValidateConfig(component string) (*config.Config, *applog.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens and migrates the repository at dbPath, or exits.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to open SQLite repository", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	logger.Info("SQLite repository ready", "path", dbPath, "schema_version", repo.SchemaVersion())
	return repo
}

// GracefulShutdown returns a context cancelled by SIGINT or SIGTERM. After
// the signal, cleanup runs under a timeout-bounded context and done closes.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		// a second signal now kills the process
		stop()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)
		runCleanup(logger, timeout, cleanup)
	}()
	return ctx, done
}

func runCleanup(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	if cleanup != nil {
		cleanup(ctx)
	}
	if ctx.Err() != nil {
		logger.Warn("Shutdown timeout reached", applog.FieldOperation, applog.OpShutdown, "timeout", timeout.String())
		return
	}
	logger.Info("Shutdown complete", applog.FieldOperation, applog.OpShutdown, "took", time.Since(start).String())
}

// WaitForShutdown blocks until ctx is cancelled and cleanup has finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
