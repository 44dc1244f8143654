package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"corpusqa/internal/contextutil"
	"corpusqa/internal/rag"
	"corpusqa/internal/service"
)

// maxUserK bounds caller-provided k values.
const maxUserK = 50

// AskHandler handles HTTP requests for corpus questions.
type AskHandler struct {
	ragEngine rag.Engine
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(ragEngine rag.Engine) *AskHandler {
	return &AskHandler{ragEngine: ragEngine}
}

// AskRequest represents the HTTP request payload.
// This mirrors rag.AskRequest but is defined here for HTTP layer separation.
//
// swagger:model AskRequest
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

// CitationResponse represents one citation in the HTTP response.
//
// swagger:model CitationResponse
type CitationResponse struct {
	// Display name of the cited document
	Source string `json:"source"`
	// Zero-based page index, -1 when unknown
	Page int `json:"page"`
	// Ingestion-run chunk identifier
	ChunkID int64 `json:"chunk_id"`
}

// AskResponse represents the HTTP response payload.
//
// swagger:model AskResponse
type AskResponse struct {
	// The generated answer
	Answer string `json:"answer"`

	// Validated structured answer, present in structured mode only
	Structured *rag.StructuredAnswer `json:"structured,omitempty"`

	// Citations for the context blocks behind the answer
	Citations []CitationResponse `json:"citations"`

	// Short previews parallel to Citations
	Snippets []string `json:"snippets"`

	// Display names of the documents routing selected
	RoutedSources []string `json:"routed_sources"`

	// Whether the context was restricted to routed documents
	RoutingUsed bool `json:"routing_used"`

	// Which retrieval strategy produced the context
	Strategy string `json:"strategy"`
}

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for corpus questions.
//
// swagger:route POST /api/v1/ask askQuestion
//
// # Ask a question against the ingested corpus
//
// Routes the question to candidate documents, retrieves chunks restricted to
// those documents, and generates an answer grounded in the retrieved text.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
//
// responses:
//
//	'200':
//	  description: Answer with citations; refusal is a valid answer
//	  schema:
//	    "$ref": "#/definitions/AskResponse"
//	'400':
//	  description: Bad request (missing question)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding or completion service unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector or payload store unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Question == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	// Zero means "use the configured default".
	if req.K < 0 {
		req.K = 0
	}
	if req.K > maxUserK {
		req.K = maxUserK
	}

	ragResp, err := h.ragEngine.Ask(ctx, rag.AskRequest{
		Question: req.Question,
		K:        req.K,
	})
	if err != nil {
		handleEngineError(w, r, err)
		return
	}

	citations := make([]CitationResponse, len(ragResp.Citations))
	for i, citation := range ragResp.Citations {
		citations[i] = CitationResponse{
			Source:  citation.Source,
			Page:    citation.Page,
			ChunkID: citation.ChunkID,
		}
	}

	resp := AskResponse{
		Answer:        ragResp.Answer,
		Structured:    ragResp.Structured,
		Citations:     citations,
		Snippets:      ragResp.Snippets,
		RoutedSources: ragResp.RoutedSources,
		RoutingUsed:   ragResp.RoutingUsed,
		Strategy:      ragResp.Strategy,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handleEngineError maps engine errors to HTTP status codes via sentinels.
func handleEngineError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "engine error", "error", err)

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, service.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Store unavailable")
	case errors.Is(err, service.ErrExternalService):
		writeError(w, http.StatusBadGateway, "External service error")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to process query")
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
