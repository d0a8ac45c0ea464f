package handlers

import (
	"net/http"

	"lecture-qa/internal/content"
	"lecture-qa/internal/service"
)

// ChunksHandler lists stored chunks and reports ingestion stats.
type ChunksHandler struct {
	svc service.QAService
}

// NewChunksHandler creates a new ChunksHandler.
func NewChunksHandler(svc service.QAService) *ChunksHandler {
	return &ChunksHandler{svc: svc}
}

// ChunksResponse lists every stored chunk.
//
// swagger:model ChunksResponse
type ChunksResponse struct {
	Count  int             `json:"count"`
	Chunks []content.Chunk `json:"chunks"`
}

// List handles GET /api/v1/chunks.
func (h *ChunksHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	chunks, err := h.svc.Chunks(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list chunks")
		return
	}
	if chunks == nil {
		chunks = []content.Chunk{}
	}
	writeJSON(ctx, w, http.StatusOK, ChunksResponse{Count: len(chunks), Chunks: chunks})
}

// Stats handles GET /api/v1/stats.
func (h *ChunksHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to compute stats")
		return
	}
	writeJSON(ctx, w, http.StatusOK, stats)
}
