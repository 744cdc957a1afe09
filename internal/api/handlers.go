package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/diagnosis-engine/internal/diagnosis"
	"github.com/terra-clan/diagnosis-engine/internal/history"
	"github.com/terra-clan/diagnosis-engine/internal/storage"
)

// envelope is the body of every API response
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeEnvelope(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "status", status, "error", err)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeEnvelope(w, status, envelope{Success: status >= 200 && status < 300, Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, envelope{Error: &apiError{Code: code, Message: message}})
}

// respondEngineError maps engine errors to HTTP statuses
func respondEngineError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, diagnosis.ErrMissingIdentifier), errors.Is(err, diagnosis.ErrInvalidAnswer):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, diagnosis.ErrBlockNotFound):
		respondError(w, http.StatusNotFound, "block_not_found", "block not found")
	case errors.Is(err, diagnosis.ErrTaskNotFound):
		respondError(w, http.StatusNotFound, "task_not_found", "task not found")
	case errors.Is(err, history.ErrEntryNotFound):
		respondError(w, http.StatusNotFound, "not_found", "history entry not found")
	default:
		slog.Error("failed to "+action,
			"error", err,
			"venue", chi.URLParam(r, "venueId"),
			"request_id", requestID(r),
		)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

// scopeFromRequest builds the storage scope from the venue path parameter and user header
func scopeFromRequest(r *http.Request) storage.Scope {
	return storage.Scope{
		UserID:  UserIDFromContext(r.Context()),
		VenueID: chi.URLParam(r, "venueId"),
	}
}

// pathParam returns an unescaped path parameter; task ids may contain escaped characters
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	report := s.health.Report(r.Context())
	if !report.Ready {
		slog.Warn("readiness check failed", "checks", report.Checks)
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": report.Checks,
	})
}
