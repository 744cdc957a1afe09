package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for diagnosis-engine
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	SQLite   SQLiteConfig
	Catalog  CatalogConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// StoreConfig selects the key/value backend
type StoreConfig struct {
	Driver string
	// LegacyFallback enables reads of unscoped keys written before venues existed
	LegacyFallback bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	DSN           string
	MigrationsDir string
	MaxConns      int
	MinConns      int
	MaxLifetime   time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// SQLiteConfig holds the local database path
type SQLiteConfig struct {
	Path string
}

// CatalogConfig holds question catalog configuration
type CatalogConfig struct {
	Dir string
	// ReloadInterval re-reads Dir periodically; 0 disables reloading
	ReloadInterval time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Store: StoreConfig{
			Driver:         strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
			LegacyFallback: getEnvAsBool("LEGACY_KEY_FALLBACK", true),
		},
		Database: DatabaseConfig{
			DSN:           getEnv("DATABASE_DSN", ""),
			MigrationsDir: getEnv("DATABASE_MIGRATIONS_DIR", ""),
			MaxConns:      getEnvAsInt("DATABASE_MAX_CONNS", 10),
			MinConns:      getEnvAsInt("DATABASE_MIN_CONNS", 2),
			MaxLifetime:   getEnvAsDuration("DATABASE_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "diagnosis:"),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "./diagnosis.db"),
		},
		Catalog: CatalogConfig{
			Dir:            getEnv("CATALOG_DIR", "./catalog"),
			ReloadInterval: getEnvAsDuration("CATALOG_RELOAD_INTERVAL", 0),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Store.Driver {
	case DriverMemory, DriverSQLite:
	case DriverRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address is required for driver %q", c.Store.Driver)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for driver %q", c.Store.Driver)
		}
		if c.Database.MinConns < 0 || c.Database.MaxConns < 0 {
			return fmt.Errorf("invalid database pool size: min %d, max %d", c.Database.MinConns, c.Database.MaxConns)
		}
		if c.Database.MaxLifetime < 0 {
			return fmt.Errorf("invalid database connection lifetime: %s", c.Database.MaxLifetime)
		}
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}

	if c.Catalog.ReloadInterval < 0 {
		return fmt.Errorf("invalid catalog reload interval: %s", c.Catalog.ReloadInterval)
	}

	if c.Store.Driver == DriverSQLite && c.SQLite.Path == "" {
		return fmt.Errorf("sqlite path is required")
	}

	return nil
}

// SlogLevel maps the configured level name to a slog.Level
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
