package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// FailureHook is notified when a stored value cannot be read or decoded
type FailureHook func(key string, err error)

// LoadJSON walks the candidate keys in order and returns the first value that decodes
// into a T. Read errors and malformed JSON are reported and treated as a miss for that
// key; a value that fails halfway never leaks into the result.
func LoadJSON[T any](ctx context.Context, s Store, keys []string, onFailure FailureHook) (T, bool) {
	var zero T
	for _, key := range keys {
		data, err := s.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				reportFailure(key, fmt.Errorf("failed to read key: %w", err), onFailure)
			}
			continue
		}

		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			reportFailure(key, fmt.Errorf("failed to decode value: %w", err), onFailure)
			continue
		}

		return v, true
	}
	return zero, false
}

// SaveJSON encodes v and writes it under key
func SaveJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func reportFailure(key string, err error, onFailure FailureHook) {
	slog.Warn("ignoring unreadable stored value", "key", key, "error", err)
	if onFailure != nil {
		onFailure(key, err)
	}
}
