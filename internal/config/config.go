package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// External services
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string

	// Stores
	CorpusDir         string
	DBPath            string
	QdrantURL         string
	ChunkCollection   string
	RoutingCollection string
	VectorSize        int

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Routing document builder
	RoutingMaxSourceChars int
	RoutingMaxPages       int
	RoutingSegmentChars   int
	RoutingSegmentOverlap int

	// Query pipeline
	TopK          int
	ChunkFetchK   int
	DocRouteTopN  int
	ContextBudget int
	MaxCitations  int
	AnswerMode    string

	// Ingestion
	IngestWorkers int

	// Server
	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it is
// loaded automatically; variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a .env next to go.mod
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "llama3.1"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "nomic-embed-text"),

		CorpusDir:         getEnv("CORPUS_DIR", "./data/corpus"),
		DBPath:            getEnv("DB_PATH", "./data/corpusqa.db"),
		QdrantURL:         getEnv("QDRANT_URL", "http://localhost:6333"),
		ChunkCollection:   getEnv("QDRANT_CHUNK_COLLECTION", "chunks"),
		RoutingCollection: getEnv("QDRANT_ROUTING_COLLECTION", "routing"),

		APIPort:   getEnv("API_PORT", "9000"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	intFields := []struct {
		dst      *int
		name     string
		fallback int
	}{
		{&cfg.ChunkSize, "CHUNK_SIZE", 800},
		{&cfg.ChunkOverlap, "CHUNK_OVERLAP", 120},
		{&cfg.RoutingMaxSourceChars, "ROUTING_MAX_SOURCE_CHARS", 6000},
		{&cfg.RoutingMaxPages, "ROUTING_MAX_PAGES", 4},
		{&cfg.RoutingSegmentChars, "ROUTING_SEGMENT_CHARS", 800},
		{&cfg.RoutingSegmentOverlap, "ROUTING_SEGMENT_OVERLAP", 120},
		{&cfg.TopK, "RAG_TOP_K", 8},
		{&cfg.ChunkFetchK, "CHUNK_FETCH_K", 40},
		{&cfg.DocRouteTopN, "DOC_ROUTE_TOP_N", 4},
		{&cfg.ContextBudget, "CONTEXT_BUDGET_CHARS", 12000},
		{&cfg.MaxCitations, "MAX_CITATIONS", 3},
		{&cfg.IngestWorkers, "INGEST_WORKERS", 4},
	}
	for _, field := range intFields {
		value, err := getEnvInt(field.name, field.fallback)
		if err != nil {
			return nil, err
		}
		*field.dst = value
	}

	// Vector size must match the embedding model's output; there is no safe
	// default, so it is required.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.VectorSize = vectorSize

	mode := strings.ToLower(getEnv("ANSWER_MODE", "text"))
	if mode != "text" && mode != "structured" {
		return nil, fmt.Errorf("ANSWER_MODE must be \"text\" or \"structured\", got %q", mode)
	}
	cfg.AnswerMode = mode

	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must satisfy 0 <= overlap < CHUNK_SIZE")
	}

	switch strings.ToLower(getEnv("LOG_LEVEL", "info")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	// Create the data directory for the SQLite file if needed
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an integer environment variable with a default.
func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return value, nil
}
