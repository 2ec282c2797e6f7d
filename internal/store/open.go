package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appcfg "git.home.luguber.info/inful/cortex/internal/config"
	ferrors "git.home.luguber.info/inful/cortex/internal/foundation/errors"
	"git.home.luguber.info/inful/cortex/internal/logfields"
)

const maxConnectInterval = 5 * time.Second

// Open constructs the Store selected by cfg. PostgreSQL connections are retried
// with exponential backoff until cfg's connect timeout and migrated on success.
func Open(ctx context.Context, cfg appcfg.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case appcfg.DatabaseSQLite, "":
		s, err := NewSQLiteStore(cfg.DSN)
		if err != nil {
			return nil, ferrors.StoreError("open sqlite store").WithCause(err).WithContext("dsn", cfg.DSN).Fatal().Build()
		}
		return s, nil
	case appcfg.DatabasePostgres:
		pool, err := connectPostgres(ctx, cfg.DSN, cfg.ConnectTimeoutDuration())
		if err != nil {
			return nil, err
		}
		if err := Migrate(ctx, cfg.DSN); err != nil {
			pool.Close()
			return nil, ferrors.StoreError("migrate postgres schema").WithCause(err).Fatal().Build()
		}
		return NewPostgresStore(pool), nil
	case appcfg.DatabaseMemory:
		return NewMemoryStore(), nil
	default:
		return nil, ferrors.ConfigError(fmt.Sprintf("unsupported database driver %q", cfg.Driver)).Build()
	}
}

func connectPostgres(ctx context.Context, dsn string, timeout time.Duration) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.MaxInterval = maxConnectInterval

	var lastErr error
	for attempt := 1; ; attempt++ {
		pool, err := pgxpool.New(ctx, dsn)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				if attempt > 1 {
					slog.Info("Connected to postgres", slog.Int("attempts", attempt))
				}
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err

		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			sleep = maxConnectInterval
		}
		slog.Warn("Postgres not reachable, retrying",
			slog.Int("attempt", attempt),
			logfields.Duration(sleep),
			logfields.Error(err))

		select {
		case <-ctx.Done():
			return nil, unavailableErr("connect", fmt.Errorf("giving up after %d attempts: %w", attempt, lastErr))
		case <-time.After(sleep):
		}
	}
}
