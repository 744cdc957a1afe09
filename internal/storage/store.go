package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Store.Get when the key does not exist
var ErrNotFound = errors.New("key not found")

// DefaultVenue is used in scoped keys when no venue is selected
const DefaultVenue = "default"

// Store is a string-keyed blob store. Values are serialized JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// ScopedKey namespaces a base key by user and venue so that venues and users never collide
func ScopedKey(base, userID, venueID string) string {
	if venueID == "" {
		venueID = DefaultVenue
	}
	if userID != "" {
		return fmt.Sprintf("user_%s_%s_%s", userID, base, venueID)
	}
	return fmt.Sprintf("%s_%s", base, venueID)
}

// Scope identifies whose data is being read or written
type Scope struct {
	UserID  string `json:"userId,omitempty"`
	VenueID string `json:"venueId"`
}

// Key returns the exact scoped key for writes
func (s Scope) Key(base string) string {
	return ScopedKey(base, s.UserID, s.VenueID)
}

// Candidates returns the read fallback chain for a base key:
// user+venue, then venue only, then the unscoped legacy key.
func (s Scope) Candidates(base string, legacy bool) []string {
	keys := make([]string, 0, 3)
	if s.UserID != "" {
		keys = append(keys, ScopedKey(base, s.UserID, s.VenueID))
	}
	keys = append(keys, ScopedKey(base, "", s.VenueID))
	if legacy {
		keys = append(keys, base)
	}
	return keys
}

// String is used in log attributes
func (s Scope) String() string {
	venue := s.VenueID
	if venue == "" {
		venue = DefaultVenue
	}
	if s.UserID == "" {
		return venue
	}
	return s.UserID + "/" + venue
}
