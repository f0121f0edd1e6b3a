package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finwatch/internal/backend"
	"finwatch/internal/cli"
	apphttp "finwatch/internal/http"
	"finwatch/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, logger := cli.MustLoadConfig(log.ComponentApp)

	// With a reachable broker, anomaly checks move to finwatch-worker and
	// alerts are fanned out. Without one everything runs inline.
	engine := cli.MustOpenEngine(cfg, logger, backend.RoleAPI)
	defer engine.Close()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Monitor:      engine.Monitor,
		Accounts:     engine.Accounts,
		Transactions: engine.Transactions,
		Budgets:      engine.Budgets,
	}, engine.Store, apphttp.Options{
		RateLimitRPM: cfg.RateLimitRPM,
		Logger:       logger,
	})

	ctx, done := cli.GracefulShutdown(context.Background(), logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting finwatch server",
		"port", cfg.Port,
		"timezone", cfg.Timezone,
		"amqp_enabled", engine.AMQP != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
