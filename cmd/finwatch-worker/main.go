package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finwatch/internal/backend"
	"finwatch/internal/cli"
	"finwatch/internal/log"
	"finwatch/internal/services"
	"finwatch/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, logger := cli.MustLoadConfig(log.ComponentWorker)
	logger.Info("Starting finwatch-worker")

	engine := cli.MustOpenEngine(cfg, logger, backend.RoleWorker)
	defer engine.Close()

	scheduler := services.NewSweepScheduler(engine.Monitor, services.SweepSchedulerConfig{
		Interval:   cfg.SweepInterval,
		RunOnStart: true,
	})

	// A dead consumer cancels base, which shuts the process down cleanly.
	base, stop := context.WithCancel(context.Background())
	defer stop()

	ctx, done := cli.GracefulShutdown(base, logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Sweep scheduler did not stop cleanly", "error", err)
		}
	})

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start sweep scheduler", "error", err)
		os.Exit(1)
	}

	if engine.AMQP != nil {
		monitorWorker := worker.NewMonitorWorker(engine.Store, engine.Monitor.Detector())
		go func() {
			err := engine.AMQP.ConsumeTransactionEvents(ctx, monitorWorker.HandleTransactionEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
				stop()
			}
		}()
	} else {
		logger.Info("AMQP disabled - running the periodic sweep only")
	}

	cli.WaitForShutdown(ctx, done)
}
