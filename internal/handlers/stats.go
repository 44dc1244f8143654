package handlers

import (
	"encoding/json"
	"net/http"

	"corpusqa/internal/contextutil"
	"corpusqa/internal/indexer"
)

// StatsHandler exposes index coverage statistics.
type StatsHandler struct {
	statsReader    *indexer.StatsReader
	embeddingModel string
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(statsReader *indexer.StatsReader, embeddingModel string) *StatsHandler {
	return &StatsHandler{statsReader: statsReader, embeddingModel: embeddingModel}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	stats, err := h.statsReader.Coverage(ctx, h.embeddingModel)
	if err != nil {
		logger.ErrorContext(ctx, "failed to compute coverage stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		logger.ErrorContext(ctx, "failed to encode stats response", "error", err)
	}
}
