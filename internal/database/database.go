package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrNoDatabaseURL is returned when no connection string is configured.
var ErrNoDatabaseURL = errors.New("DATABASE_URL environment variable is not set")

// ConnectDB maakt en test een verbinding met de database.
// The ping is retried with backoff so the service survives a database that starts after it.
func ConnectDB(ctx context.Context, dbURL string, retry RetryConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	if dbURL == "" {
		return nil, ErrNoDatabaseURL
	}

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	attempt := 0
	err = RetryOperation(ctx, retry, func() error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			log.Warn("database ping failed",
				zap.String("component", "database"),
				zap.Int("attempt", attempt),
				zap.Error(pingErr))
			return pingErr
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	log.Info("successfully connected to database",
		zap.String("component", "database"),
		zap.String("host", cfg.ConnConfig.Host),
		zap.String("database", cfg.ConnConfig.Database))
	return pool, nil
}
