package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finanzen/internal/backend"
	"finanzen/internal/cli"
	"finanzen/internal/log"
	"finanzen/internal/services"
	"finanzen/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.SetupLogger("info", log.ComponentWorker).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)
	logger.Info("Starting finanzen-worker", "export_backend", cfg.ExportBackend)

	repo := cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)
	defer repo.Close()

	factory := backend.NewFactory(logger.Logger)
	exporter, err := factory.Exporter(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize export backend", "error", err)
		os.Exit(1)
	}
	if exporter == nil {
		logger.Error("finanzen-worker needs an export backend, set EXPORT_BACKEND to memory or sheets")
		os.Exit(1)
	}
	exportWorker := worker.NewExportWorker(repo, exporter, cfg.ExportBatchSize)

	processor := services.NewExportProcessor(exportWorker, services.ExportProcessorConfig{
		PollInterval: cfg.ExportInterval,
	})

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Export processor did not stop cleanly", "error", err)
		}
	})

	// Recover imports whose messages were lost while the worker was down.
	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupExportCheck(ctx); err != nil {
		logger.Error("Failed startup export check", "error", err)
	}

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start export processor", "error", err)
		os.Exit(1)
	}

	if cfg.MessagingEnabled() {
		consumer, err := factory.Consumer(cfg)
		if err != nil {
			logger.Error("AMQP unavailable, relying on periodic export", "error", err)
		} else {
			defer consumer.Close()
			go func() {
				err := consumer.ConsumeImportCompleted(ctx, exportWorker.HandleImportCompleted)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Message consumption failed", "error", err)
				}
			}()
		}
	} else {
		logger.Info("AMQP disabled - exporting on the poll interval only", "interval", cfg.ExportInterval)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
