// Package diagnosis is the consumer-facing engine: it derives block state, tasks and
// history for a venue from recorded answers and the question catalog.
package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/terra-clan/diagnosis-engine/internal/history"
	"github.com/terra-clan/diagnosis-engine/internal/models"
	"github.com/terra-clan/diagnosis-engine/internal/scoring"
	"github.com/terra-clan/diagnosis-engine/internal/storage"
	"github.com/terra-clan/diagnosis-engine/internal/tasks"
)

// Storage base keys
const (
	answersKeyPrefix = "answers_"
	BlocksKey        = "blocks"
	TaskStateKey     = "task_state"
)

var (
	ErrMissingIdentifier = errors.New("missing identifier")
	ErrBlockNotFound     = errors.New("block not found")
	ErrInvalidAnswer     = errors.New("invalid answer")
	ErrTaskNotFound      = errors.New("task not found")
)

// AnswersKey is the base key holding a block's answers
func AnswersKey(blockID string) string {
	return answersKeyPrefix + blockID
}

// Catalog is the read-only question catalog
type Catalog interface {
	Block(id string) *models.Block
	Blocks() []*models.Block
}

// Config holds optional service settings
type Config struct {
	LegacyFallback bool
	Metrics        *Metrics
	Now            func() time.Time
	NewID          func() string
}

// Service implements the engine operations on top of a scoped store
type Service struct {
	catalog Catalog
	store   storage.Store
	history *history.Aggregator
	metrics *Metrics
	legacy  bool
	now     func() time.Time
}

// Tally is the correct/incorrect view of a block over all of its questions
type Tally struct {
	BlockID    string `json:"blockId"`
	Correct    int    `json:"correct"`
	Answered   int    `json:"answered"`
	Total      int    `json:"total"`
	Efficiency *int   `json:"efficiency"`
}

// Summary is the outcome of a recomputation
type Summary struct {
	Overall  int                  `json:"overall"`
	Blocks   []models.BlockState  `json:"blocks"`
	Appended *models.HistoryEntry `json:"appended,omitempty"`
	Baseline models.Baseline      `json:"baseline"`
}

// NewService creates a new diagnosis service
func NewService(catalog Catalog, store storage.Store, cfg Config) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	opts := []history.Option{
		history.WithClock(now),
		history.WithLegacyFallback(cfg.LegacyFallback),
		history.WithFailureHook(cfg.Metrics.readFailed),
	}
	if cfg.NewID != nil {
		opts = append(opts, history.WithIDGenerator(cfg.NewID))
	}

	return &Service{
		catalog: catalog,
		store:   store,
		history: history.NewAggregator(store, opts...),
		metrics: cfg.Metrics,
		legacy:  cfg.LegacyFallback,
		now:     now,
	}
}

func checkScope(scope storage.Scope) error {
	if scope.VenueID == "" {
		return fmt.Errorf("%w: venue id", ErrMissingIdentifier)
	}
	return nil
}

func checkBlock(scope storage.Scope, blockID string) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	if blockID == "" {
		return fmt.Errorf("%w: block id", ErrMissingIdentifier)
	}
	return nil
}

// load reads a scoped value; misses and unreadable data yield the zero T
func load[T any](ctx context.Context, s *Service, scope storage.Scope, base string) T {
	v, _ := storage.LoadJSON[T](ctx, s.store, scope.Candidates(base, s.legacy), s.metrics.readFailed)
	return v
}

// answers reads a block's answers; unreadable data reads as unanswered
func (s *Service) answers(ctx context.Context, scope storage.Scope, blockID string) models.Answers {
	answers := load[models.Answers](ctx, s, scope, AnswersKey(blockID))
	if answers == nil {
		answers = models.Answers{}
	}
	return answers
}

func (s *Service) overlays(ctx context.Context, scope storage.Scope) map[string]models.BlockOverlay {
	overlays := load[map[string]models.BlockOverlay](ctx, s, scope, BlocksKey)
	if overlays == nil {
		overlays = map[string]models.BlockOverlay{}
	}
	return overlays
}

func (s *Service) taskState(ctx context.Context, scope storage.Scope) map[string]models.TaskOverlay {
	state := load[map[string]models.TaskOverlay](ctx, s, scope, TaskStateKey)
	if state == nil {
		state = map[string]models.TaskOverlay{}
	}
	return state
}

// derive scores a block from its readable answers only. The stored overlay
// contributes nothing but its UpdatedAt, so unreadable answers read as unanswered.
func (s *Service) derive(ctx context.Context, scope storage.Scope, block *models.Block, stored models.BlockOverlay) models.BlockState {
	score, ok := scoring.ScoreBlock(block, s.answers(ctx, scope, block.ID), scoring.ModeGraded)

	overlay := models.BlockOverlay{
		Completed: score.Completed,
		Answered:  score.Answered,
		Total:     score.Total,
		UpdatedAt: stored.UpdatedAt,
	}
	if ok {
		overlay.Efficiency = intPtr(score.Efficiency)
	}
	return models.MergeBlock(block, overlay)
}

// unscorable is the state of a block the catalog does not know
func unscorable(blockID string) models.BlockState {
	return models.BlockState{ID: blockID}
}

// GetBlockEfficiency returns the merged state of one block. An unknown block is
// reported as unscorable, not as an error.
func (s *Service) GetBlockEfficiency(ctx context.Context, scope storage.Scope, blockID string) (models.BlockState, error) {
	if err := checkBlock(scope, blockID); err != nil {
		return models.BlockState{}, err
	}

	block := s.catalog.Block(blockID)
	if block == nil {
		slog.Debug("block not in catalog", "block", blockID)
		return unscorable(blockID), nil
	}
	return s.derive(ctx, scope, block, s.overlays(ctx, scope)[blockID]), nil
}

// ListBlocks returns the merged state of every catalog block in catalog order
func (s *Service) ListBlocks(ctx context.Context, scope storage.Scope) ([]models.BlockState, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	overlays := s.overlays(ctx, scope)
	blocks := s.catalog.Blocks()
	states := make([]models.BlockState, 0, len(blocks))
	for _, b := range blocks {
		states = append(states, s.derive(ctx, scope, b, overlays[b.ID]))
	}
	return states, nil
}

// GetOverallEfficiency is the rounded mean over completed blocks; 0 when none is completed
func (s *Service) GetOverallEfficiency(ctx context.Context, scope storage.Scope) (int, error) {
	states, err := s.ListBlocks(ctx, scope)
	if err != nil {
		return 0, err
	}
	return scoring.OverallEfficiency(states), nil
}

// GetTasksForBlock generates the block's tasks, applies stored completion flags and
// annotates them with efficiency gains based on the block's current efficiency.
func (s *Service) GetTasksForBlock(ctx context.Context, scope storage.Scope, blockID string) (_ []models.Task, err error) {
	defer func(start time.Time) { s.metrics.observe("get_tasks", start, err) }(time.Now())

	if err := checkBlock(scope, blockID); err != nil {
		return nil, err
	}

	block := s.catalog.Block(blockID)
	if block == nil {
		return []models.Task{}, nil
	}

	answers := s.answers(ctx, scope, blockID)
	generated := tasks.Merge(tasks.Generate(block, answers), s.taskState(ctx, scope))

	base := 0
	if score, ok := scoring.ScoreBlock(block, answers, scoring.ModeGraded); ok {
		base = score.Efficiency
	}

	allocated := tasks.Allocate(blockID, base, generated)
	s.metrics.allocated(len(allocated))
	return allocated, nil
}

// GetTally scores a block over all of its questions, unanswered ones counting as 0
func (s *Service) GetTally(ctx context.Context, scope storage.Scope, blockID string) (Tally, error) {
	if err := checkBlock(scope, blockID); err != nil {
		return Tally{}, err
	}

	tally := Tally{BlockID: blockID}
	block := s.catalog.Block(blockID)
	if block == nil {
		return tally, nil
	}

	score, ok := scoring.ScoreBlock(block, s.answers(ctx, scope, blockID), scoring.ModeTally)
	tally.Correct = score.Correct
	tally.Answered = score.Answered
	tally.Total = score.Total
	if ok {
		tally.Efficiency = intPtr(score.Efficiency)
	}
	return tally, nil
}

// GetHistory returns the venue's history with the latest-vs-previous delta
func (s *Service) GetHistory(ctx context.Context, scope storage.Scope) (models.HistoryView, error) {
	if err := checkScope(scope); err != nil {
		return models.HistoryView{}, err
	}
	return s.history.View(ctx, scope), nil
}

// DeleteHistoryEntry removes one history entry at the user's request
func (s *Service) DeleteHistoryEntry(ctx context.Context, scope storage.Scope, entryID string) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	if entryID == "" {
		return fmt.Errorf("%w: entry id", ErrMissingIdentifier)
	}
	return s.history.Delete(ctx, scope, entryID)
}

// RecordAnswer stores the selected option for a question and recomputes the venue
func (s *Service) RecordAnswer(ctx context.Context, scope storage.Scope, blockID, questionID, optionID string) (_ models.BlockState, err error) {
	defer func(start time.Time) { s.metrics.observe("record_answer", start, err) }(time.Now())

	if err := checkBlock(scope, blockID); err != nil {
		return models.BlockState{}, err
	}
	if questionID == "" {
		return models.BlockState{}, fmt.Errorf("%w: question id", ErrMissingIdentifier)
	}

	block := s.catalog.Block(blockID)
	if block == nil {
		return models.BlockState{}, ErrBlockNotFound
	}
	q := block.Question(questionID)
	if q == nil {
		return models.BlockState{}, fmt.Errorf("%w: unknown question %s", ErrInvalidAnswer, questionID)
	}
	if q.Option(optionID) == nil {
		return models.BlockState{}, fmt.Errorf("%w: unknown option %s for question %s", ErrInvalidAnswer, optionID, questionID)
	}

	answers := s.answers(ctx, scope, blockID)
	answers[questionID] = optionID
	if err := storage.SaveJSON(ctx, s.store, scope.Key(AnswersKey(blockID)), answers); err != nil {
		return models.BlockState{}, fmt.Errorf("failed to save answers: %w", err)
	}
	s.metrics.answerRecorded()

	slog.Info("answer recorded",
		"scope", scope.String(),
		"block", blockID,
		"question", questionID,
		"option", optionID,
	)

	summary, err := s.Recompute(ctx, scope)
	if err != nil {
		return models.BlockState{}, err
	}
	for _, b := range summary.Blocks {
		if b.ID == blockID {
			return b, nil
		}
	}
	return s.GetBlockEfficiency(ctx, scope, blockID)
}

// ResetBlock clears a block's answers and overlay so the questionnaire can be retaken.
// Task completion flags and history are kept.
func (s *Service) ResetBlock(ctx context.Context, scope storage.Scope, blockID string) error {
	if err := checkBlock(scope, blockID); err != nil {
		return err
	}
	if s.catalog.Block(blockID) == nil {
		return ErrBlockNotFound
	}

	if err := s.store.Remove(ctx, scope.Key(AnswersKey(blockID))); err != nil {
		return fmt.Errorf("failed to remove answers: %w", err)
	}

	overlays := s.overlays(ctx, scope)
	delete(overlays, blockID)
	if err := storage.SaveJSON(ctx, s.store, scope.Key(BlocksKey), overlays); err != nil {
		return fmt.Errorf("failed to save block overlays: %w", err)
	}

	slog.Info("block reset", "scope", scope.String(), "block", blockID)
	_, err := s.Recompute(ctx, scope)
	return err
}

// SetTaskCompleted toggles a task's completion flag, persisted by task identity
func (s *Service) SetTaskCompleted(ctx context.Context, scope storage.Scope, blockID, taskID string, completed bool) (models.Task, error) {
	if err := checkBlock(scope, blockID); err != nil {
		return models.Task{}, err
	}
	if taskID == "" {
		return models.Task{}, fmt.Errorf("%w: task id", ErrMissingIdentifier)
	}

	current, err := s.GetTasksForBlock(ctx, scope, blockID)
	if err != nil {
		return models.Task{}, err
	}
	idx := -1
	for i, t := range current {
		if t.ID == taskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Task{}, ErrTaskNotFound
	}

	state := s.taskState(ctx, scope)
	overlay := models.TaskOverlay{Completed: completed}
	if completed {
		at := s.now().UTC()
		overlay.CompletedAt = &at
	}
	state[taskID] = overlay

	if err := storage.SaveJSON(ctx, s.store, scope.Key(TaskStateKey), state); err != nil {
		return models.Task{}, fmt.Errorf("failed to save task state: %w", err)
	}

	task := models.MergeTask(current[idx], overlay)
	return task, nil
}

// Recompute rescores every block, persists the block overlays, appends a history
// entry when the overall efficiency changed and maintains the complete-run baseline.
func (s *Service) Recompute(ctx context.Context, scope storage.Scope) (_ Summary, err error) {
	defer func(start time.Time) { s.metrics.observe("recompute", start, err) }(time.Now())

	states, err := s.ListBlocks(ctx, scope)
	if err != nil {
		return Summary{}, err
	}

	stored := s.overlays(ctx, scope)
	now := s.now().UTC()
	overlays := make(map[string]models.BlockOverlay, len(states))
	for i, st := range states {
		prev, seen := stored[st.ID]
		if !seen || overlayChanged(prev, st.Overlay()) {
			states[i].UpdatedAt = now
		}
		overlays[st.ID] = states[i].Overlay()
	}
	if err := storage.SaveJSON(ctx, s.store, scope.Key(BlocksKey), overlays); err != nil {
		return Summary{}, fmt.Errorf("failed to save block overlays: %w", err)
	}

	summary := Summary{
		Overall: scoring.OverallEfficiency(states),
		Blocks:  states,
	}

	summary.Appended, err = s.history.AppendIfChanged(ctx, scope, summary.Overall, scoring.CompletedBlocks(states))
	if err != nil {
		return Summary{}, err
	}
	if summary.Appended != nil {
		s.metrics.historyAppended()
	}

	summary.Baseline, err = s.history.UpdateBaseline(ctx, scope, scoring.AllCompleted(states), summary.Overall)
	if err != nil {
		return Summary{}, err
	}

	return summary, nil
}

func overlayChanged(a, b models.BlockOverlay) bool {
	if a.Completed != b.Completed || a.Answered != b.Answered || a.Total != b.Total {
		return true
	}
	if (a.Efficiency == nil) != (b.Efficiency == nil) {
		return true
	}
	return a.Efficiency != nil && *a.Efficiency != *b.Efficiency
}

func intPtr(v int) *int {
	return &v
}
