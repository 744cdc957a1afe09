package api

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode"
)

// UserIDHeader carries the optional user scope of a request
const UserIDHeader = "X-User-ID"

const maxUserIDLength = 128

// IdentifyUser reads the user scope from the X-User-ID header.
// A missing header means the request works on venue-only keys.
func IdentifyUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		if !validUserID(userID) {
			slog.Warn("rejected user id", "remote_addr", r.RemoteAddr, "length", len(userID))
			respondError(w, http.StatusBadRequest, "invalid_user", "X-User-ID must be at most 128 printable characters without spaces")
			return
		}

		ctx := ContextWithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validUserID rejects ids that could not appear inside a storage key
func validUserID(id string) bool {
	if len(id) > maxUserIDLength {
		return false
	}
	for _, r := range id {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
