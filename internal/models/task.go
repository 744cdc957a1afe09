package models

import "time"

// Task is an improvement action suggested because of a sub-optimal answer
type Task struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       Priority `json:"priority"`
	Category       string   `json:"category"`
	BlockID        string   `json:"blockId"`
	BlockTitle     string   `json:"blockTitle"`
	Completed      bool     `json:"completed"`
	EfficiencyGain int      `json:"efficiencyGain"`
	GainLabel      string   `json:"gainLabel,omitempty"`
}

// TaskOverlay is the user-controlled state of a task, persisted by task ID
type TaskOverlay struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// MergeTask applies a stored overlay to a freshly generated task
func MergeTask(generated Task, overlay TaskOverlay) Task {
	generated.Completed = overlay.Completed
	return generated
}
