// Package tasks derives improvement tasks from weak answers and spreads a block's
// remaining efficiency headroom across them.
package tasks

import (
	"strings"
	"unicode"

	"github.com/terra-clan/diagnosis-engine/internal/models"
)

// TaskID derives a task identity from the option it came from, or from the
// recommendation title when the option has no ID.
func TaskID(blockID, optionID, title string) string {
	key := optionID
	if key == "" {
		key = slug(title)
	}
	return blockID + ":" + key
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Generate returns one task per recorded, non-ideal answer that carries a recommendation.
// Output order follows catalog order; the same answers always produce the same tasks.
func Generate(block *models.Block, answers models.Answers) []models.Task {
	if block == nil {
		return nil
	}

	var tasks []models.Task
	seen := make(map[string]bool)

	for _, q := range block.Questions {
		opt, ok := answers.Resolve(q)
		if !ok || opt.IsIdeal() {
			continue
		}

		rec := opt.Recommendation
		if rec == nil || strings.TrimSpace(rec.Title) == "" {
			continue
		}

		id := TaskID(block.ID, opt.ID, rec.Title)
		if seen[id] {
			continue
		}
		seen[id] = true

		tasks = append(tasks, models.Task{
			ID:          id,
			Title:       rec.Title,
			Description: rec.Description,
			Priority:    rec.Priority,
			Category:    rec.Category,
			BlockID:     block.ID,
			BlockTitle:  block.Title,
		})
	}

	return tasks
}

// Merge applies persisted completion flags to generated tasks by identity
func Merge(generated []models.Task, overlays map[string]models.TaskOverlay) []models.Task {
	merged := make([]models.Task, len(generated))
	for i, t := range generated {
		merged[i] = models.MergeTask(t, overlays[t.ID])
	}
	return merged
}
