package health

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresChecker pings PostgreSQL over a dedicated database/sql handle, independent
// of the store's pool, so readiness reflects the server and not pool exhaustion.
type PostgresChecker struct {
	db *sql.DB
}

// NewPostgresChecker opens a lib/pq handle for dsn. The connection is established lazily.
func NewPostgresChecker(dsn string) (*PostgresChecker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &PostgresChecker{db: db}, nil
}

func (c *PostgresChecker) Name() string {
	return "postgres"
}

func (c *PostgresChecker) Check(ctx context.Context) error {
	var one int
	if err := c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("failed to query postgres: %w", err)
	}
	return nil
}

// Close closes the underlying handle
func (c *PostgresChecker) Close() error {
	return c.db.Close()
}
