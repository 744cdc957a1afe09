// Package health tracks the dependencies the engine needs in order to serve requests.
package health

import (
	"context"

	"github.com/terra-clan/diagnosis-engine/internal/storage"
)

// Checker defines a dependency that can report its availability
type Checker interface {
	// Name returns the dependency name used in readiness reports
	Name() string

	// Check returns nil when the dependency is reachable
	Check(ctx context.Context) error
}

// StoreChecker reports the health of the active key/value backend
type StoreChecker struct {
	name  string
	store storage.Store
}

// NewStoreChecker wraps a store; name is usually the configured driver
func NewStoreChecker(name string, store storage.Store) *StoreChecker {
	return &StoreChecker{name: name, store: store}
}

func (c *StoreChecker) Name() string {
	return c.name
}

func (c *StoreChecker) Check(ctx context.Context) error {
	return c.store.Ping(ctx)
}
