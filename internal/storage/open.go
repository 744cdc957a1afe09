package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/diagnosis-engine/internal/config"
)

// Open creates the Store selected by cfg.Store.Driver.
// For postgres, pending migrations are applied first.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory store, data will not survive a restart")
		return NewMemoryStore(), nil

	case config.DriverSQLite:
		return NewSQLiteStore(cfg.SQLite.Path)

	case config.DriverRedis:
		return NewRedisStore(ctx, RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})

	case config.DriverPostgres:
		migrations, err := MigrationsFS(cfg.Database.MigrationsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open migrations: %w", err)
		}
		store, err := NewPostgresStore(ctx, postgresConfig(cfg.Database))
		if err != nil {
			return nil, err
		}
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := store.Migrate(ctx, migrations); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store driver: %q", cfg.Store.Driver)
	}
}

func postgresConfig(db config.DatabaseConfig) PostgresConfig {
	return PostgresConfig{
		DSN:         db.DSN,
		MaxConns:    int32(db.MaxConns),
		MinConns:    int32(db.MinConns),
		MaxLifetime: db.MaxLifetime,
	}
}
