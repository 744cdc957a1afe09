package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/diagnosis-engine/internal/models"
	"github.com/terra-clan/diagnosis-engine/internal/storage"
)

func newTestAggregator(store storage.Store) *Aggregator {
	seq := 0
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return NewAggregator(store,
		WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("entry-%d", seq)
		}),
		WithLegacyFallback(true),
	)
}

func eff(v int) *int { return &v }

func completed(effs ...int) []models.BlockState {
	blocks := make([]models.BlockState, len(effs))
	for i, e := range effs {
		blocks[i] = models.BlockState{ID: fmt.Sprintf("b%d", i), Completed: true, Efficiency: eff(e)}
	}
	return blocks
}

func TestAppendIfChangedDeduplicates(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator(storage.NewMemoryStore())
	scope := storage.Scope{VenueID: "A"}

	first, err := agg.AppendIfChanged(ctx, scope, 70, completed(70))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "entry-1", first.ID)
	assert.Equal(t, map[string]int{"b0": 70}, first.BlockEfficiencies)

	second, err := agg.AppendIfChanged(ctx, scope, 70, completed(70))
	require.NoError(t, err)
	assert.Nil(t, second)

	assert.Len(t, agg.Entries(ctx, scope), 1)

	third, err := agg.AppendIfChanged(ctx, scope, 75, completed(70, 80))
	require.NoError(t, err)
	require.NotNil(t, third)
	assert.Len(t, agg.Entries(ctx, scope), 2)
}

func TestAppendIfChangedAllowsReturnToEarlierValue(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator(storage.NewMemoryStore())
	scope := storage.Scope{VenueID: "A"}

	for _, v := range []int{70, 80, 70} {
		_, err := agg.AppendIfChanged(ctx, scope, v, completed(v))
		require.NoError(t, err)
	}
	assert.Len(t, agg.Entries(ctx, scope), 3)
}

func TestAppendIfChangedNoCompletedBlocks(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator(storage.NewMemoryStore())
	scope := storage.Scope{VenueID: "A"}

	entry, err := agg.AppendIfChanged(ctx, scope, 50, nil)
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Empty(t, agg.Entries(ctx, scope))
}

func TestSnapshotSkipsUndefinedEfficiency(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator(storage.NewMemoryStore())
	scope := storage.Scope{VenueID: "A"}

	blocks := []models.BlockState{
		{ID: "scored", Completed: true, Efficiency: eff(40)},
		{ID: "empty", Completed: true},
	}
	entry, err := agg.AppendIfChanged(ctx, scope, 40, blocks)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, map[string]int{"scored": 40}, entry.BlockEfficiencies)
}

func TestBaselineFirstCompletion(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator(storage.NewMemoryStore())
	scope := storage.Scope{UserID: "u1", VenueID: "A"}

	b, err := agg.UpdateBaseline(ctx, scope, false, 55)
	require.NoError(t, err)
	assert.Nil(t, b.Current)

	b, err = agg.UpdateBaseline(ctx, scope, true, 62)
	require.NoError(t, err)
	require.NotNil(t, b.Current)
	assert.Equal(t, 62, *b.Current)
	assert.Nil(t, b.Previous)
	assert.Nil(t, b.Delta())

	// unchanged average keeps the baseline as is
	b, err = agg.UpdateBaseline(ctx, scope, true, 62)
	require.NoError(t, err)
	assert.Nil(t, b.Previous)

	b, err = agg.UpdateBaseline(ctx, scope, true, 70)
	require.NoError(t, err)
	assert.Equal(t, 70, *b.Current)
	assert.Equal(t, 62, *b.Previous)
	require.NotNil(t, b.Delta())
	assert.Equal(t, 8, *b.Delta())

	stored := agg.Baseline(ctx, scope)
	assert.Equal(t, 70, *stored.Current)
	assert.Equal(t, 62, *stored.Previous)
}

func TestView(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator(storage.NewMemoryStore())
	scope := storage.Scope{VenueID: "A"}

	view := agg.View(ctx, scope)
	assert.NotNil(t, view.Entries)
	assert.Empty(t, view.Entries)
	assert.Nil(t, view.Delta)

	_, err := agg.AppendIfChanged(ctx, scope, 62, completed(62))
	require.NoError(t, err)
	_, err = agg.UpdateBaseline(ctx, scope, true, 62)
	require.NoError(t, err)

	view = agg.View(ctx, scope)
	assert.Len(t, view.Entries, 1)
	assert.Nil(t, view.Delta, "a single entry has nothing to compare against")

	_, err = agg.AppendIfChanged(ctx, scope, 70, completed(70))
	require.NoError(t, err)
	_, err = agg.UpdateBaseline(ctx, scope, true, 70)
	require.NoError(t, err)

	view = agg.View(ctx, scope)
	require.NotNil(t, view.Delta)
	assert.Equal(t, 8, *view.Delta)
	assert.Equal(t, 70, *view.Current)
	assert.Equal(t, 62, *view.Previous)
}

func TestViewWithoutCompleteRun(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator(storage.NewMemoryStore())
	scope := storage.Scope{VenueID: "A"}

	for _, v := range []int{40, 55} {
		_, err := agg.AppendIfChanged(ctx, scope, v, completed(v))
		require.NoError(t, err)
	}

	view := agg.View(ctx, scope)
	assert.Len(t, view.Entries, 2)
	assert.Nil(t, view.Delta)
}

func TestViewFirstCompletionAfterPartialRun(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator(storage.NewMemoryStore())
	scope := storage.Scope{VenueID: "A"}

	_, err := agg.AppendIfChanged(ctx, scope, 100, completed(100))
	require.NoError(t, err)
	_, err = agg.UpdateBaseline(ctx, scope, false, 100)
	require.NoError(t, err)

	_, err = agg.AppendIfChanged(ctx, scope, 88, completed(88))
	require.NoError(t, err)
	_, err = agg.UpdateBaseline(ctx, scope, true, 88)
	require.NoError(t, err)

	view := agg.View(ctx, scope)
	assert.Len(t, view.Entries, 2)
	assert.Equal(t, 88, *view.Current)
	assert.Nil(t, view.Previous)
	assert.Nil(t, view.Delta, "a partial run is not a previous complete run")

	_, err = agg.AppendIfChanged(ctx, scope, 38, completed(38))
	require.NoError(t, err)
	_, err = agg.UpdateBaseline(ctx, scope, true, 38)
	require.NoError(t, err)

	view = agg.View(ctx, scope)
	require.NotNil(t, view.Delta)
	assert.Equal(t, -50, *view.Delta)
	assert.Equal(t, agg.Baseline(ctx, scope).Delta(), view.Delta)
}

func TestVenueIsolation(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator(storage.NewMemoryStore())

	_, err := agg.AppendIfChanged(ctx, storage.Scope{VenueID: "A"}, 70, completed(70))
	require.NoError(t, err)

	assert.Empty(t, agg.Entries(ctx, storage.Scope{VenueID: "B"}))
	assert.Len(t, agg.Entries(ctx, storage.Scope{VenueID: "A"}), 1)
}

func TestMalformedHistoryReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	scope := storage.Scope{VenueID: "A"}
	require.NoError(t, store.Set(ctx, scope.Key(HistoryKey), []byte("{not json")))

	var failed []string
	agg := NewAggregator(store, WithFailureHook(func(key string, err error) {
		failed = append(failed, key)
	}))

	assert.Empty(t, agg.Entries(ctx, scope))
	assert.Equal(t, []string{"efficiency_history_A"}, failed)

	entry, err := agg.AppendIfChanged(ctx, scope, 30, completed(30))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Len(t, agg.Entries(ctx, scope), 1)
}

func TestLegacyHistoryFallback(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	legacy := []models.HistoryEntry{{ID: "old", Efficiency: 45}}
	require.NoError(t, storage.SaveJSON(ctx, store, HistoryKey, legacy))

	scope := storage.Scope{VenueID: "A"}

	withFallback := NewAggregator(store, WithLegacyFallback(true))
	entries := withFallback.Entries(ctx, scope)
	require.Len(t, entries, 1)
	assert.Equal(t, "old", entries[0].ID)

	without := NewAggregator(store)
	assert.Empty(t, without.Entries(ctx, scope))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	agg := newTestAggregator(storage.NewMemoryStore())
	scope := storage.Scope{VenueID: "A"}

	for _, v := range []int{40, 50, 60} {
		_, err := agg.AppendIfChanged(ctx, scope, v, completed(v))
		require.NoError(t, err)
	}

	require.NoError(t, agg.Delete(ctx, scope, "entry-2"))
	entries := agg.Entries(ctx, scope)
	require.Len(t, entries, 2)
	assert.Equal(t, "entry-1", entries[0].ID)
	assert.Equal(t, "entry-3", entries[1].ID)

	assert.ErrorIs(t, agg.Delete(ctx, scope, "entry-2"), ErrEntryNotFound)
}
