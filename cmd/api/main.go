package main

import (
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"corpusqa/internal/config"
	"corpusqa/internal/http"
	"corpusqa/internal/indexer"
	"corpusqa/internal/llm"
	"corpusqa/internal/rag"
	"corpusqa/internal/storage"
	"corpusqa/internal/vectorstore"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers natural-language questions against an ingested document
// corpus, constraining the model to the retrieved context.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: corpusqa API
//   description: |
//     Retrieval-augmented question answering over a fixed document corpus.
//     Questions are routed to candidate documents, answered only from
//     retrieved chunks, and returned with citations.
//   version: 1.0.0
// schemes:
//   - http
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	sourceRepo := storage.NewSourceRepo(db)
	chunkRepo := storage.NewChunkRepo(db)

	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorSize)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	ragEngine := rag.NewEngine(embedder, vectorStore, chunkRepo, llmClient, rag.Options{
		ChunkCollection:   cfg.ChunkCollection,
		RoutingCollection: cfg.RoutingCollection,
		TopK:              cfg.TopK,
		ChunkFetchK:       cfg.ChunkFetchK,
		DocRouteTopN:      cfg.DocRouteTopN,
		ContextBudget:     cfg.ContextBudget,
		MaxCitations:      cfg.MaxCitations,
		Mode:              cfg.AnswerMode,
	})
	slog.Info("Query engine initialized", "mode", cfg.AnswerMode, "top_k", cfg.TopK)

	statsReader := indexer.NewStatsReader(chunkRepo, cfg.ChunkSize, cfg.ChunkOverlap)

	router := http.NewRouter(&http.Deps{
		RAGEngine:      ragEngine,
		SourceRepo:     sourceRepo,
		ChunkCounter:   chunkRepo,
		StatsReader:    statsReader,
		EmbeddingModel: cfg.EmbeddingModelName,
	})

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
