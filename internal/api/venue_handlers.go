package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RecordAnswerRequest selects an option for a question
type RecordAnswerRequest struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

// TaskStateRequest toggles task completion
type TaskStateRequest struct {
	Completed bool `json:"completed"`
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// Venue handlers

func (s *Server) handleGetOverallEfficiency(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromRequest(r)
	overall, err := s.engine.GetOverallEfficiency(r.Context(), scope)
	if err != nil {
		respondEngineError(w, r, err, "get overall efficiency")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"venueId":    scope.VenueID,
		"efficiency": overall,
	})
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Recompute(r.Context(), scopeFromRequest(r))
	if err != nil {
		respondEngineError(w, r, err, "recompute venue")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := s.engine.ListBlocks(r.Context(), scopeFromRequest(r))
	if err != nil {
		respondEngineError(w, r, err, "list blocks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"blocks": blocks,
		"total":  len(blocks),
	})
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	state, err := s.engine.GetBlockEfficiency(r.Context(), scopeFromRequest(r), chi.URLParam(r, "blockId"))
	if err != nil {
		respondEngineError(w, r, err, "get block")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetTally(w http.ResponseWriter, r *http.Request) {
	tally, err := s.engine.GetTally(r.Context(), scopeFromRequest(r), chi.URLParam(r, "blockId"))
	if err != nil {
		respondEngineError(w, r, err, "get tally")
		return
	}
	respondJSON(w, http.StatusOK, tally)
}

func (s *Server) handleRecordAnswer(w http.ResponseWriter, r *http.Request) {
	var req RecordAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.QuestionID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "questionId is required")
		return
	}

	if req.OptionID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "optionId is required")
		return
	}

	state, err := s.engine.RecordAnswer(r.Context(), scopeFromRequest(r), chi.URLParam(r, "blockId"), req.QuestionID, req.OptionID)
	if err != nil {
		respondEngineError(w, r, err, "record answer")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleResetBlock(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ResetBlock(r.Context(), scopeFromRequest(r), chi.URLParam(r, "blockId")); err != nil {
		respondEngineError(w, r, err, "reset block")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "block reset",
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.engine.GetTasksForBlock(r.Context(), scopeFromRequest(r), chi.URLParam(r, "blockId"))
	if err != nil {
		respondEngineError(w, r, err, "list tasks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": list,
		"total": len(list),
	})
}

func (s *Server) handleSetTaskCompleted(w http.ResponseWriter, r *http.Request) {
	var req TaskStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	task, err := s.engine.SetTaskCompleted(r.Context(), scopeFromRequest(r),
		chi.URLParam(r, "blockId"), pathParam(r, "taskId"), req.Completed)
	if err != nil {
		respondEngineError(w, r, err, "update task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.GetHistory(r.Context(), scopeFromRequest(r))
	if err != nil {
		respondEngineError(w, r, err, "get history")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteHistoryEntry(r.Context(), scopeFromRequest(r), chi.URLParam(r, "entryId")); err != nil {
		respondEngineError(w, r, err, "delete history entry")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "history entry deleted",
	})
}
