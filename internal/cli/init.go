// Package cli provides common process initialization utilities shared by
// cmd/finwatch, cmd/finwatch-worker and cmd/finwatchctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finwatch/internal/backend"
	"finwatch/internal/config"
	"finwatch/internal/log"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads and validates configuration, then installs the default
// logger for component at the configured level.
func LoadConfig(component string) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, log.Setup(component, "info"), err
	}
	logger := log.Setup(component, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}

// MustLoadConfig is LoadConfig that exits the process on failure.
func MustLoadConfig(component string) (*config.Config, *log.Logger) {
	cfg, logger, err := LoadConfig(component)
	if err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenEngine builds the engine for role from cfg.
func OpenEngine(cfg *config.Config, logger *log.Logger, role backend.Role) (*backend.Engine, error) {
	bcfg, err := backend.FromAppConfig(cfg, role)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.Logger).Create(bcfg)
}

// MustOpenEngine is OpenEngine that exits the process on failure.
func MustOpenEngine(cfg *config.Config, logger *log.Logger, role backend.Role) *backend.Engine {
	engine, err := OpenEngine(cfg, logger, role)
	if err != nil {
		logger.Error("Failed to initialize engine", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	return engine
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals or when parent
// ends, and a channel that signals when cleanup has finished.
func GracefulShutdown(parent context.Context, logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return shutdownOn(ctx, cancel, sigChan, logger, timeout, cleanup)
}

func shutdownOn(ctx context.Context, cancel context.CancelFunc, sigChan <-chan os.Signal, logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	done := make(chan struct{})

	go func() {
		defer close(done)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			logger.Info("Context cancelled")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
