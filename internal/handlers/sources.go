package handlers

import (
	"encoding/json"
	"net/http"

	"corpusqa/internal/contextutil"
	"corpusqa/internal/storage"
)

// SourcesHandler lists the ingested source documents.
type SourcesHandler struct {
	sourceRepo storage.SourceStore
}

// NewSourcesHandler creates a new SourcesHandler.
func NewSourcesHandler(sourceRepo storage.SourceStore) *SourcesHandler {
	return &SourcesHandler{sourceRepo: sourceRepo}
}

// SourceResponse represents one ingested source.
type SourceResponse struct {
	SourceKey   string `json:"source_key"`
	DisplayName string `json:"display_name"`
	Pages       int    `json:"pages"`
	// SegmentCount of 0 means the source is unroutable.
	SegmentCount int `json:"segment_count"`
}

func (h *SourcesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sources, err := h.sourceRepo.ListAll(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list sources", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list sources")
		return
	}

	resp := make([]SourceResponse, 0, len(sources))
	for _, source := range sources {
		resp = append(resp, SourceResponse{
			SourceKey:    source.SourceKey,
			DisplayName:  source.DisplayName,
			Pages:        source.Pages,
			SegmentCount: source.SegmentCount,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode sources response", "error", err)
	}
}
