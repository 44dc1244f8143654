package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"corpusqa/internal/handlers"
	"corpusqa/internal/indexer"
	"corpusqa/internal/rag"
	"corpusqa/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	RAGEngine      rag.Engine
	SourceRepo     storage.SourceStore
	ChunkCounter   handlers.ChunkCounter
	StatsReader    *indexer.StatsReader
	EmbeddingModel string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.RAGEngine)
	healthHandler := handlers.NewHealthHandler(deps.ChunkCounter)
	sourcesHandler := handlers.NewSourcesHandler(deps.SourceRepo)

	r.Method(http.MethodGet, "/health", healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Method(http.MethodGet, "/sources", sourcesHandler)
		if deps.StatsReader != nil {
			r.Method(http.MethodGet, "/stats", handlers.NewStatsHandler(deps.StatsReader, deps.EmbeddingModel))
		}
	})

	return r
}
