package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.True(t, cfg.Store.LegacyFallback)
	assert.Equal(t, "./catalog", cfg.Catalog.Dir)
	assert.Zero(t, cfg.Catalog.ReloadInterval)
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, 2, cfg.Database.MinConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.MaxLifetime)
}

func TestLoadDatabasePool(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://localhost/diagnosis")
	t.Setenv("DATABASE_MAX_CONNS", "20")
	t.Setenv("DATABASE_MIN_CONNS", "5")
	t.Setenv("DATABASE_MAX_LIFETIME", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, 5, cfg.Database.MinConns)
	assert.Equal(t, time.Hour, cfg.Database.MaxLifetime)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"memory ok", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "etcd" }, true},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }, true},
		{"postgres with dsn", func(c *Config) {
			c.Store.Driver = DriverPostgres
			c.Database.DSN = "postgres://localhost/diagnosis"
		}, false},
		{"postgres negative min conns", func(c *Config) {
			c.Store.Driver = DriverPostgres
			c.Database.DSN = "postgres://localhost/diagnosis"
			c.Database.MinConns = -1
		}, true},
		{"postgres negative lifetime", func(c *Config) {
			c.Store.Driver = DriverPostgres
			c.Database.DSN = "postgres://localhost/diagnosis"
			c.Database.MaxLifetime = -time.Minute
		}, true},
		{"redis without address", func(c *Config) {
			c.Store.Driver = DriverRedis
			c.Redis.Address = ""
		}, true},
		{"negative reload interval", func(c *Config) { c.Catalog.ReloadInterval = -time.Second }, true},
		{"sqlite without path", func(c *Config) {
			c.Store.Driver = DriverSQLite
			c.SQLite.Path = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:   ServerConfig{Port: 8080},
				Store:    StoreConfig{Driver: DriverMemory},
				Database: DatabaseConfig{MaxConns: 10, MinConns: 2},
				Redis:    RedisConfig{Address: "localhost:6379"},
				SQLite:   SQLiteConfig{Path: "x.db"},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("LEGACY_KEY_FALLBACK", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Store.LegacyFallback)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "warning"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: ""}.SlogLevel())
}
