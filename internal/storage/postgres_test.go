package storage

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/diagnosis-engine/internal/config"
)

func TestPostgresPoolConfig(t *testing.T) {
	cfg := postgresConfig(config.DatabaseConfig{
		DSN:         "postgres://diagnosis@localhost:5432/diagnosis",
		MaxConns:    20,
		MinConns:    5,
		MaxLifetime: time.Hour,
	})

	pc, err := cfg.poolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(20), pc.MaxConns)
	assert.Equal(t, int32(5), pc.MinConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
}

func TestPostgresPoolConfigDefaults(t *testing.T) {
	pc, err := PostgresConfig{DSN: "postgres://localhost/diagnosis"}.poolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(10), pc.MaxConns)
	assert.Equal(t, int32(2), pc.MinConns)
	assert.Equal(t, 30*time.Minute, pc.MaxConnLifetime)

	pc, err = PostgresConfig{DSN: "postgres://localhost/diagnosis", MaxConns: 1}.poolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(1), pc.MinConns)

	_, err = PostgresConfig{DSN: "postgres://%zz"}.poolConfig()
	assert.Error(t, err)
}

func TestBundledMigrations(t *testing.T) {
	fsys, err := MigrationsFS("")
	require.NoError(t, err)

	files, err := fs.Glob(fsys, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_kv_store.sql"}, files)

	sql, err := fs.ReadFile(fsys, "001_kv_store.sql")
	require.NoError(t, err)
	assert.Contains(t, string(sql), "kv_store")
}
