package config

import (
	"log/slog"
	"path/filepath"
	"testing"
)

// setRequiredEnv gives Load the minimum viable environment, pointing the
// database at a temp dir so tests never touch ./data.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("QDRANT_VECTOR_SIZE", "768")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "corpusqa.db"))
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.VectorSize != 768 {
		t.Errorf("VectorSize = %d, want 768", cfg.VectorSize)
	}
	if cfg.ChunkSize != 800 {
		t.Errorf("ChunkSize = %d, want 800", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 120 {
		t.Errorf("ChunkOverlap = %d, want 120", cfg.ChunkOverlap)
	}
	if cfg.TopK != 8 {
		t.Errorf("TopK = %d, want 8", cfg.TopK)
	}
	if cfg.ChunkFetchK != 40 {
		t.Errorf("ChunkFetchK = %d, want 40", cfg.ChunkFetchK)
	}
	if cfg.DocRouteTopN != 4 {
		t.Errorf("DocRouteTopN = %d, want 4", cfg.DocRouteTopN)
	}
	if cfg.MaxCitations != 3 {
		t.Errorf("MaxCitations = %d, want 3", cfg.MaxCitations)
	}
	if cfg.AnswerMode != "text" {
		t.Errorf("AnswerMode = %q, want text", cfg.AnswerMode)
	}
	if cfg.ChunkCollection != "chunks" || cfg.RoutingCollection != "routing" {
		t.Errorf("collections = %q, %q", cfg.ChunkCollection, cfg.RoutingCollection)
	}
	if cfg.APIPort != "9000" {
		t.Errorf("APIPort = %q, want 9000", cfg.APIPort)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoad_VectorSizeRequired(t *testing.T) {
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "corpusqa.db"))
	t.Setenv("QDRANT_VECTOR_SIZE", "")

	if _, err := Load(); err == nil {
		t.Error("Load() without QDRANT_VECTOR_SIZE expected error, got nil")
	}
}

func TestLoad_VectorSizeInvalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "abc"},
		{"zero", "0"},
		{"negative", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "corpusqa.db"))
			t.Setenv("QDRANT_VECTOR_SIZE", tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with QDRANT_VECTOR_SIZE=%q expected error, got nil", tt.value)
			}
		})
	}
}

func TestLoad_InvalidIntField(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHUNK_SIZE", "not-a-number")

	if _, err := Load(); err == nil {
		t.Error("Load() with invalid CHUNK_SIZE expected error, got nil")
	}
}

func TestLoad_AnswerMode(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		want    string
		wantErr bool
	}{
		{"text", "text", "text", false},
		{"structured", "structured", "structured", false},
		{"case folded", "STRUCTURED", "structured", false},
		{"unknown mode", "verbose", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("ANSWER_MODE", tt.mode)

			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() with ANSWER_MODE=%q expected error, got nil", tt.mode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.AnswerMode != tt.want {
				t.Errorf("AnswerMode = %q, want %q", cfg.AnswerMode, tt.want)
			}
		})
	}
}

func TestLoad_OverlapBounds(t *testing.T) {
	tests := []struct {
		name    string
		size    string
		overlap string
		wantErr bool
	}{
		{"valid", "800", "120", false},
		{"zero overlap", "800", "0", false},
		{"negative overlap", "800", "-1", true},
		{"overlap equals size", "800", "800", true},
		{"overlap exceeds size", "800", "900", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("CHUNK_SIZE", tt.size)
			t.Setenv("CHUNK_OVERLAP", tt.overlap)

			_, err := Load()
			if tt.wantErr && err == nil {
				t.Errorf("Load() with overlap %s/size %s expected error, got nil", tt.overlap, tt.size)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Load() error = %v", err)
			}
		})
	}
}

func TestLoad_LogLevel(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"warn", "warn", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"default on unknown", "trace", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("LOG_LEVEL", tt.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.LogLevel != tt.want {
				t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, tt.want)
			}
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RAG_TOP_K", "16")
	t.Setenv("QDRANT_CHUNK_COLLECTION", "my_chunks")
	t.Setenv("CORPUS_DIR", "/srv/corpus")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TopK != 16 {
		t.Errorf("TopK = %d, want 16", cfg.TopK)
	}
	if cfg.ChunkCollection != "my_chunks" {
		t.Errorf("ChunkCollection = %q, want my_chunks", cfg.ChunkCollection)
	}
	if cfg.CorpusDir != "/srv/corpus" {
		t.Errorf("CorpusDir = %q, want /srv/corpus", cfg.CorpusDir)
	}
}
