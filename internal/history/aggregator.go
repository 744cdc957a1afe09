// Package history keeps the per-venue time series of efficiency snapshots.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/diagnosis-engine/internal/models"
	"github.com/terra-clan/diagnosis-engine/internal/storage"
)

// Storage base keys
const (
	HistoryKey  = "efficiency_history"
	BaselineKey = "efficiency_baseline"
)

// ErrEntryNotFound is returned when deleting an unknown entry
var ErrEntryNotFound = errors.New("history entry not found")

// Aggregator appends snapshots to a venue's history and maintains its baseline
type Aggregator struct {
	store     storage.Store
	legacy    bool
	now       func() time.Time
	newID     func() string
	onFailure storage.FailureHook
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithIDGenerator overrides entry ID generation
func WithIDGenerator(newID func() string) Option {
	return func(a *Aggregator) { a.newID = newID }
}

// WithLegacyFallback enables reads of unscoped legacy keys
func WithLegacyFallback(enabled bool) Option {
	return func(a *Aggregator) { a.legacy = enabled }
}

// WithFailureHook is called for every unreadable stored value
func WithFailureHook(hook storage.FailureHook) Option {
	return func(a *Aggregator) { a.onFailure = hook }
}

// NewAggregator creates an aggregator on top of store
func NewAggregator(store storage.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Entries returns the venue's history in append order. Unreadable data reads as empty.
func (a *Aggregator) Entries(ctx context.Context, scope storage.Scope) []models.HistoryEntry {
	entries, _ := storage.LoadJSON[[]models.HistoryEntry](ctx, a.store, scope.Candidates(HistoryKey, a.legacy), a.onFailure)
	return entries
}

// AppendIfChanged appends a snapshot unless completedBlocks is empty or the last
// entry already holds the same efficiency. It returns the new entry, or nil.
func (a *Aggregator) AppendIfChanged(ctx context.Context, scope storage.Scope, efficiency int, completedBlocks []models.BlockState) (*models.HistoryEntry, error) {
	if len(completedBlocks) == 0 {
		return nil, nil
	}

	entries := a.Entries(ctx, scope)
	if n := len(entries); n > 0 && entries[n-1].Efficiency == efficiency {
		return nil, nil
	}

	snapshot := make(map[string]int, len(completedBlocks))
	for _, b := range completedBlocks {
		if b.Efficiency != nil {
			snapshot[b.ID] = *b.Efficiency
		}
	}

	entry := models.HistoryEntry{
		ID:                a.newID(),
		CreatedAt:         a.now().UTC(),
		Efficiency:        efficiency,
		BlockEfficiencies: snapshot,
	}
	entries = append(entries, entry)

	if err := storage.SaveJSON(ctx, a.store, scope.Key(HistoryKey), entries); err != nil {
		return nil, fmt.Errorf("failed to append history entry: %w", err)
	}

	slog.Info("history entry appended",
		"scope", scope.String(),
		"efficiency", efficiency,
		"entries", len(entries),
	)
	return &entry, nil
}

// Baseline returns the stored complete-run baseline
func (a *Aggregator) Baseline(ctx context.Context, scope storage.Scope) models.Baseline {
	b, _ := storage.LoadJSON[models.Baseline](ctx, a.store, scope.Candidates(BaselineKey, a.legacy), a.onFailure)
	return b
}

// UpdateBaseline records the average of a run where every block is completed.
// The first complete run only sets Current; later changes roll Current into Previous.
func (a *Aggregator) UpdateBaseline(ctx context.Context, scope storage.Scope, allCompleted bool, average int) (models.Baseline, error) {
	b := a.Baseline(ctx, scope)
	if !allCompleted {
		return b, nil
	}

	switch {
	case b.Current == nil:
		b.Current = intPtr(average)
		b.Previous = nil
	case *b.Current != average:
		b.Previous = intPtr(*b.Current)
		b.Current = intPtr(average)
	default:
		return b, nil
	}
	b.UpdatedAt = a.now().UTC()

	if err := storage.SaveJSON(ctx, a.store, scope.Key(BaselineKey), b); err != nil {
		return b, fmt.Errorf("failed to save baseline: %w", err)
	}
	return b, nil
}

// View assembles the consumer-facing history: entries plus the change between the
// last two complete runs. Delta stays nil with fewer than two entries and until a
// second complete run exists; partial-run entries never count as a previous value.
func (a *Aggregator) View(ctx context.Context, scope storage.Scope) models.HistoryView {
	entries := a.Entries(ctx, scope)
	baseline := a.Baseline(ctx, scope)

	view := models.HistoryView{
		Entries:  entries,
		Current:  baseline.Current,
		Previous: baseline.Previous,
	}
	if view.Entries == nil {
		view.Entries = []models.HistoryEntry{}
	}

	if len(entries) >= 2 {
		view.Delta = baseline.Delta()
	}
	return view
}

// Delete removes a single entry at the user's request
func (a *Aggregator) Delete(ctx context.Context, scope storage.Scope, entryID string) error {
	entries := a.Entries(ctx, scope)

	kept := entries[:0]
	found := false
	for _, e := range entries {
		if e.ID == entryID {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return ErrEntryNotFound
	}

	if err := storage.SaveJSON(ctx, a.store, scope.Key(HistoryKey), kept); err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}
