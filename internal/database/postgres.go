// Package database provides the PostgreSQL connection factory and health
// checker shared by the API server and the cache warmer.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/csalazar/almoner/internal/config"
)

// NewPostgresPool initializes a PostgreSQL connection pool from config.
// The caller owns the pool lifecycle and must Close it on shutdown.
func NewPostgresPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config cannot be nil")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// MaxConns prevents the app from starving the DB; MinConns keeps some
	// connections warm to reduce latency for new requests.
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pingWithRetry(ctx, pool, cfg); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// pingWithRetry verifies the connection, retrying with a fixed backoff. The
// database is usually the last dependency to come up locally, so failing on
// the first ping makes startup ordering brittle.
func pingWithRetry(ctx context.Context, pool *pgxpool.Pool, cfg *config.DatabaseConfig) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.PingMaxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("retrying database ping",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", cfg.PingBackoff),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.PingBackoff):
			}
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		lastErr = pool.Ping(pingCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to ping database after %d attempts: %w", cfg.PingMaxRetries+1, lastErr)
}
