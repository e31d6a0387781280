package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanzen/internal/backend"
	"finanzen/internal/cache"
	"finanzen/internal/cli"
	apphttp "finanzen/internal/http"
	"finanzen/internal/importer"
	"finanzen/internal/log"
	"finanzen/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.SetupLogger("info", log.ComponentApp).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)

	repo := cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)
	defer repo.Close()

	factory := backend.NewFactory(logger.Logger)
	publisher, closePublisher := factory.Publisher(cfg)
	defer closePublisher()

	stats := services.NewStatsService(repo, cfg.StatsCacheTTL)
	if cfg.StatsCacheTTL > 0 {
		cacheManager := cache.NewManager()
		stats.RegisterCleanup(cacheManager)
		cacheManager.StartCleanup(cfg.StatsCacheTTL)
		defer cacheManager.Stop()
	}

	profiles := services.NewProfileService(repo)
	if cfg.EnsureAdminProfile {
		if _, err := profiles.EnsureAdmin(context.Background()); err != nil {
			logger.Error("Failed to ensure admin profile", "error", err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Imports:        services.NewImportService(repo, importer.DefaultRegistry(), publisher),
		Categorization: services.NewCategorizationService(repo),
		Splits:         services.NewSplitService(repo),
		Transactions:   services.NewTransactionService(repo),
		Categories:     services.NewCategoryService(repo),
		Profiles:       profiles,
		Accounts:       services.NewAccountService(repo),
		Stats:          stats,
	}, repo, apphttp.Options{
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting finanzen server",
		"port", cfg.Port,
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
