package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/persons/internal/config"
	"github.com/JonMunkholm/persons/internal/core"
)

// Open returns the gateway selected by cfg.Driver together with a function
// releasing its resources. For postgres it applies migrations first when
// AutoMigrate is set.
func Open(ctx context.Context, cfg config.DatabaseConfig) (core.Gateway, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory store, records are lost on exit")
		return NewMemory(), func() {}, nil

	case config.DriverPostgres, "":
		if cfg.AutoMigrate {
			if err := Migrate(ctx, cfg.URL); err != nil {
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}

		pool, err := NewPool(ctx, PoolConfig{
			URL:             cfg.URL,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}

		slog.Info("connected to database",
			"max_conns", pool.Config().MaxConns,
			"min_conns", pool.Config().MinConns,
		)
		return NewPostgres(pool), pool.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
