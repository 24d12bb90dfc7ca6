// Package main initializes and runs the Almoner cache warmer.
//
// The warmer keeps the shared Redis cache populated with the governing
// rule set for each jurisdiction so screening requests rarely touch
// PostgreSQL directly.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/csalazar/almoner/internal/cache"
	"github.com/csalazar/almoner/internal/config"
	"github.com/csalazar/almoner/internal/database"
	"github.com/csalazar/almoner/internal/logger"
	"github.com/csalazar/almoner/internal/observability"
	"github.com/csalazar/almoner/internal/store"
	"github.com/csalazar/almoner/internal/syncer"
)

// main is the application entrypoint.
func main() {
	if err := run(); err != nil {
		log.Printf("Fatal error: %v", err)
		os.Exit(1)
	}
}

// run executes the worker lifecycle.
func run() error {
	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.New(&cfg.App)
	slog.SetDefault(appLogger)

	if !cfg.Syncer.Enabled {
		appLogger.Info("cache warmer disabled by configuration, exiting")
		return nil
	}
	if !cfg.Redis.IsConfigured() {
		return fmt.Errorf("cache warmer requires redis configuration")
	}

	appLogger.Info("starting cache warmer", slog.String("version", cfg.App.Version))
	cfg.LogConfig(appLogger)

	ctx := context.Background()

	// -------------------------------------------------------------------------
	// 2. Infrastructure Setup
	// -------------------------------------------------------------------------
	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	sharedCache := cache.NewRedisCache(redisClient, cfg.Cache.KeyPrefix, cfg.Cache.SharedTTL)
	repo := store.NewPostgresStore(pool)

	// -------------------------------------------------------------------------
	// 3. Wiring & Observability
	// -------------------------------------------------------------------------
	svc := syncer.New(appLogger, cfg.Syncer, repo, sharedCache)

	obsServer := observability.NewServer(appLogger, &cfg.Observability,
		database.NewHealthChecker(pool),
		cache.NewHealthChecker(redisClient),
	)
	obsServer.Start()

	// -------------------------------------------------------------------------
	// 4. Run & Graceful Shutdown
	// -------------------------------------------------------------------------
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(runCtx); err != nil {
		return fmt.Errorf("cache warmer failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("failed to shut down observability server", slog.String("error", err.Error()))
	}

	appLogger.Info("worker exited successfully")
	return nil
}
