package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Catalog handlers: read-only browsing of the question catalog

func (s *Server) handleListCatalogBlocks(w http.ResponseWriter, r *http.Request) {
	blocks := s.catalog.Blocks()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"blocks": blocks,
		"total":  len(blocks),
	})
}

func (s *Server) handleGetCatalogBlock(w http.ResponseWriter, r *http.Request) {
	blockID := chi.URLParam(r, "blockId")
	block := s.catalog.Block(blockID)
	if block == nil {
		respondError(w, http.StatusNotFound, "not_found", "block not found")
		return
	}
	respondJSON(w, http.StatusOK, block)
}
