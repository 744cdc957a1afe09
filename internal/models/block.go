package models

import "time"

// BlockOverlay is the persisted, mutable part of a block for one venue
type BlockOverlay struct {
	Completed  bool      `json:"completed"`
	Efficiency *int      `json:"efficiency,omitempty"`
	Answered   int       `json:"answered"`
	Total      int       `json:"total"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// BlockState is a catalog block merged with its runtime overlay
type BlockState struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Efficiency  *int      `json:"efficiency"` // nil until the block is scorable
	Answered    int       `json:"answered"`
	Total       int       `json:"total"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Overlay extracts the persisted part of the state
func (s BlockState) Overlay() BlockOverlay {
	return BlockOverlay{
		Completed:  s.Completed,
		Efficiency: s.Efficiency,
		Answered:   s.Answered,
		Total:      s.Total,
		UpdatedAt:  s.UpdatedAt,
	}
}

// MergeBlock combines a catalog entry with its stored overlay.
// Identity fields always come from the catalog, state fields from the overlay.
func MergeBlock(entry *Block, overlay BlockOverlay) BlockState {
	state := BlockState{
		Completed:  overlay.Completed,
		Efficiency: overlay.Efficiency,
		Answered:   overlay.Answered,
		Total:      overlay.Total,
		UpdatedAt:  overlay.UpdatedAt,
	}
	if entry != nil {
		state.ID = entry.ID
		state.Title = entry.Title
		state.Description = entry.Description
		state.Total = len(entry.Questions)
	}
	return state
}
