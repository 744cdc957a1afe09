package health

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/diagnosis-engine/internal/storage"
)

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string { return s.name }
func (s stubChecker) Check(ctx context.Context) error { return s.err }

func TestRegistryReport(t *testing.T) {
	r := NewRegistry()
	r.Register(NewStoreChecker("memory", storage.NewMemoryStore()))
	r.Register(stubChecker{name: "redis"})

	assert.Equal(t, []string{"memory", "redis"}, r.List())

	report := r.Report(context.Background())
	assert.True(t, report.Ready)
	assert.Equal(t, map[string]string{"memory": "ok", "redis": "ok"}, report.Checks)

	r.Register(stubChecker{name: "redis", err: errors.New("connection refused")})
	report = r.Report(context.Background())
	assert.False(t, report.Ready)
	assert.Equal(t, "connection refused", report.Checks["redis"])

	r.Unregister("redis")
	assert.Equal(t, []string{"memory"}, r.List())
	assert.True(t, r.Report(context.Background()).Ready)
}

func TestEmptyRegistryIsReady(t *testing.T) {
	report := NewRegistry().Report(context.Background())
	assert.True(t, report.Ready)
	assert.Empty(t, report.Checks)
}

func TestPostgresChecker(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping")
	}

	checker, err := NewPostgresChecker(dsn)
	require.NoError(t, err)
	defer checker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, checker.Check(ctx))
}
