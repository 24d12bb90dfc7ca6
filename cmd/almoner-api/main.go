// Package main initializes and runs the Almoner screening API.
//
// It acts as the composition root: it loads configuration, connects to
// PostgreSQL and (optionally) Redis, wires the screening service behind
// the REST API, and handles the server lifecycle.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/csalazar/almoner/internal/api"
	"github.com/csalazar/almoner/internal/cache"
	"github.com/csalazar/almoner/internal/config"
	"github.com/csalazar/almoner/internal/database"
	"github.com/csalazar/almoner/internal/engine"
	"github.com/csalazar/almoner/internal/logger"
	"github.com/csalazar/almoner/internal/observability"
	"github.com/csalazar/almoner/internal/screening"
	"github.com/csalazar/almoner/internal/store"
)

// main is the application entrypoint.
func main() {
	if err := run(); err != nil {
		log.Printf("Fatal error: %v", err)
		os.Exit(1)
	}
}

// run executes the service lifecycle.
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

	appLogger.Info("starting screening API", slog.String("version", cfg.App.Version))
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

	var checkers []observability.Checker
	checkers = append(checkers, database.NewHealthChecker(pool))

	// Redis is optional: without it the service reads through the local
	// cache straight to PostgreSQL.
	var sharedCache cache.Service
	if cfg.Redis.IsConfigured() {
		redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()

		sharedCache = cache.NewRedisCache(redisClient, cfg.Cache.KeyPrefix, cfg.Cache.SharedTTL)
		checkers = append(checkers, cache.NewHealthChecker(redisClient))
	} else {
		appLogger.Warn("redis not configured, shared cache disabled")
	}

	localCache, err := cache.NewMemoryCache(cfg.Cache.LocalCapacity, cfg.Cache.LocalTTL)
	if err != nil {
		return fmt.Errorf("failed to create local cache: %w", err)
	}
	defer localCache.Close()

	// -------------------------------------------------------------------------
	// 3. Wiring (Dependency Injection)
	// -------------------------------------------------------------------------
	repo := store.NewPostgresStore(pool)
	eng := engine.New(appLogger)
	svc := screening.NewService(repo, sharedCache, localCache, eng)
	restAPI := api.NewAPI(svc, appLogger, cfg.Server.RequestTimeout)

	// -------------------------------------------------------------------------
	// 4. HTTP Servers
	// -------------------------------------------------------------------------
	obsServer := observability.NewServer(appLogger, &cfg.Observability, checkers...)
	obsServer.Start()

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           restAPI.Router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP server listening", slog.String("addr", server.Addr))

		var serveErr error
		if cfg.Server.TLSEnabled {
			serveErr = server.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			serveErr = server.ListenAndServe()
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- fmt.Errorf("failed to serve HTTP: %w", serveErr)
		}
	}()

	// -------------------------------------------------------------------------
	// 5. Graceful Shutdown
	// -------------------------------------------------------------------------
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		appLogger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("failed to shut down observability server", slog.String("error", err.Error()))
	}

	appLogger.Info("service exited successfully")
	return nil
}
