// Package scoring turns recorded answers into block and venue efficiency percentages.
package scoring

import (
	"github.com/terra-clan/diagnosis-engine/internal/models"
)

// Mode selects the denominator convention for a block score
type Mode int

const (
	// ModeGraded divides by the number of answered questions.
	// It produces the canonical efficiency used for history, gains and the venue average.
	ModeGraded Mode = iota
	// ModeTally divides by the total number of questions; unanswered questions count as 0.
	// It is only meant for the correct/incorrect tally display.
	ModeTally
)

func (m Mode) String() string {
	switch m {
	case ModeGraded:
		return "graded"
	case ModeTally:
		return "tally"
	default:
		return "unknown"
	}
}

// Score is the result of scoring one block
type Score struct {
	Efficiency int  `json:"efficiency"`
	Answered   int  `json:"answered"`
	Correct    int  `json:"correct"` // answers on the ideal option
	Total      int  `json:"total"`
	Completed  bool `json:"completed"`
}

// contribution in half points: ideal 2, medium 1, anything else 0
func contribution(o *models.Option) int {
	if o.Graded() {
		switch o.Priority {
		case models.PriorityLow:
			return 2
		case models.PriorityMedium:
			return 1
		default:
			return 0
		}
	}
	if o.Correct != nil && *o.Correct {
		return 2
	}
	return 0
}

// ScoreBlock computes a block's efficiency from its answers.
// ok is false when the block has no questions, or in ModeGraded when nothing is answered yet.
func ScoreBlock(block *models.Block, answers models.Answers, mode Mode) (Score, bool) {
	if block == nil || len(block.Questions) == 0 {
		return Score{}, false
	}

	score := Score{Total: len(block.Questions)}
	halfPoints := 0
	for _, q := range block.Questions {
		opt, ok := answers.Resolve(q)
		if !ok {
			continue
		}
		score.Answered++
		if opt.IsIdeal() {
			score.Correct++
		}
		halfPoints += contribution(opt)
	}
	score.Completed = score.Answered == score.Total

	denominator := score.Total
	if mode == ModeGraded {
		denominator = score.Answered
	}
	if denominator == 0 {
		return score, false
	}

	score.Efficiency = roundPercent(halfPoints, 2*denominator)
	return score, true
}

// roundPercent returns round-half-up(100 * num / den) using integer arithmetic
func roundPercent(num, den int) int {
	return (200*num + den) / (2 * den)
}

// OverallEfficiency is the rounded mean efficiency of completed, scored blocks; 0 when none
func OverallEfficiency(states []models.BlockState) int {
	sum, n := 0, 0
	for _, s := range states {
		if !s.Completed || s.Efficiency == nil {
			continue
		}
		sum += *s.Efficiency
		n++
	}
	if n == 0 {
		return 0
	}
	return (2*sum + n) / (2 * n)
}

// CompletedBlocks filters states down to completed blocks
func CompletedBlocks(states []models.BlockState) []models.BlockState {
	var completed []models.BlockState
	for _, s := range states {
		if s.Completed {
			completed = append(completed, s)
		}
	}
	return completed
}

// AllCompleted reports whether every block is completed. An empty list is not complete.
func AllCompleted(states []models.BlockState) bool {
	if len(states) == 0 {
		return false
	}
	for _, s := range states {
		if !s.Completed {
			return false
		}
	}
	return true
}
