package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"corpusqa/internal/contextutil"
)

// ChunkCounter reports how many chunks the payload store holds.
// *storage.ChunkRepo satisfies it.
type ChunkCounter interface {
	Count(ctx context.Context) (int, error)
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	chunkCounter       ChunkCounter
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(chunkCounter ChunkCounter) *HealthHandler {
	return &HealthHandler{
		chunkCounter:       chunkCounter,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// Number of indexed chunks, present when the store is reachable
	Chunks int `json:"chunks,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
// Returns 200 OK when the payload store is reachable, 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	count, err := h.chunkCounter.Count(checkCtx)
	if err != nil {
		logger.WarnContext(ctx, "chunk store health check failed", "error", err)
		checks["chunk_store"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["chunk_store"] = "ok"
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Chunks:    count,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}
