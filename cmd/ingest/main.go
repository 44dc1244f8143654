package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"corpusqa/internal/config"
	"corpusqa/internal/corpus"
	"corpusqa/internal/indexer"
	"corpusqa/internal/llm"
	"corpusqa/internal/storage"
	"corpusqa/internal/vectorstore"
)

// The ingest binary builds both indexes from scratch: the corpus directory
// is loaded, chunked and segmented, everything is embedded, and the chunk
// and routing collections are rebuilt wholesale. It is a batch job meant to
// run before (or instead of restarting) the API server.
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

	ctx := context.Background()

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

	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Rebuild is all-or-nothing: drop both collections, then recreate them
	// with the configured vector size.
	for _, collection := range []string{cfg.ChunkCollection, cfg.RoutingCollection} {
		if err := vectorStore.DropCollection(ctx, collection); err != nil {
			log.Fatalf("Failed to drop collection %s: %v", collection, err)
		}
		if err := vectorStore.EnsureCollection(ctx, collection, cfg.VectorSize); err != nil {
			log.Fatalf("Failed to create collection %s: %v", collection, err)
		}
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorSize)

	// Fail fast on a misconfigured embedding endpoint before touching stores
	probe, err := embedder.EmbedTexts(ctx, []string{"probe"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(probe) == 0 || len(probe[0]) != cfg.VectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d", cfg.VectorSize)
	}

	pipeline := indexer.NewPipeline(
		corpus.NewLoader(),
		indexer.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		indexer.NewRoutingBuilder(cfg.RoutingMaxSourceChars, cfg.RoutingMaxPages, cfg.RoutingSegmentChars, cfg.RoutingSegmentOverlap),
		embedder,
		vectorStore,
		cfg.ChunkCollection,
		cfg.RoutingCollection,
		storage.NewSourceRepo(db),
		storage.NewChunkRepo(db),
		storage.NewSegmentRepo(db),
		cfg.IngestWorkers,
	)

	result, err := pipeline.BuildIndexes(ctx, cfg.CorpusDir)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	fmt.Printf("Indexed %d sources (%d pages): %d chunks, %d routing segments\n",
		result.Sources, result.Pages, result.Chunks, result.Segments)
	for _, collection := range []string{cfg.ChunkCollection, cfg.RoutingCollection} {
		info, err := vectorStore.GetCollectionInfo(ctx, collection)
		if err != nil {
			slog.Warn("failed to read collection info", "collection", collection, "error", err)
			continue
		}
		fmt.Printf("Collection %s: %d points, status %s\n", collection, info.PointsCount, info.Status)
	}
}
