package models

import "time"

// HistoryEntry is one immutable snapshot of venue efficiency
type HistoryEntry struct {
	ID                string         `json:"id"`
	CreatedAt         time.Time      `json:"createdAt"`
	Efficiency        int            `json:"efficiency"`
	BlockEfficiencies map[string]int `json:"blockEfficiencies"`
}

// Baseline tracks the complete-run efficiency and the one before it
type Baseline struct {
	Current   *int      `json:"current,omitempty"`
	Previous  *int      `json:"previous,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Delta returns current - previous, or nil when there is nothing to compare
func (b Baseline) Delta() *int {
	if b.Current == nil || b.Previous == nil {
		return nil
	}
	d := *b.Current - *b.Previous
	return &d
}

// HistoryView is the consumer-facing history of a venue
type HistoryView struct {
	Entries  []HistoryEntry `json:"entries"`
	Delta    *int           `json:"delta"`
	Current  *int           `json:"current"`
	Previous *int           `json:"previous"`
}
