package api

import (
	"context"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// UserIDFromContext returns the caller's user ID, or "" for anonymous requests
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDContextKey).(string)
	return userID
}

// ContextWithUserID adds the caller's user ID to context
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
