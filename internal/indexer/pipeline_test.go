package indexer

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"corpusqa/internal/corpus"
	"corpusqa/internal/storage"
	vsmocks "corpusqa/internal/vectorstore/mocks"
)

// stubEmbedder returns deterministic fixed-size vectors without a network.
type stubEmbedder struct {
	dim   int
	calls int
}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, s.dim)
	}
	return vectors, nil
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func writePipelineCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	paperA := "This paper introduces a routing approach. It selects candidate documents before retrieval.\fSecond page with more method details. The evaluation follows in later pages."
	paperB := "A survey of chunking strategies. Fixed windows are compared against boundary-aware splitters."

	if err := os.WriteFile(filepath.Join(dir, "Paper A.txt"), []byte(paperA), 0644); err != nil {
		t.Fatalf("failed to write corpus file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Paper B.txt"), []byte(paperB), 0644); err != nil {
		t.Fatalf("failed to write corpus file: %v", err)
	}
	return dir
}

func TestPipeline_BuildIndexes(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(t)

	vectorStore := vsmocks.NewMockVectorStore(ctrl)
	vectorStore.EXPECT().Upsert(gomock.Any(), "chunks", gomock.Any()).Return(nil).AnyTimes()
	vectorStore.EXPECT().Upsert(gomock.Any(), "routing", gomock.Any()).Return(nil).AnyTimes()

	chunkRepo := storage.NewChunkRepo(db)
	sourceRepo := storage.NewSourceRepo(db)
	segmentRepo := storage.NewSegmentRepo(db)

	p := NewPipeline(
		corpus.NewLoader(),
		NewChunker(80, 10),
		NewRoutingBuilder(6000, 4, 200, 20),
		&stubEmbedder{dim: 4},
		vectorStore,
		"chunks",
		"routing",
		sourceRepo,
		chunkRepo,
		segmentRepo,
		2,
	)

	result, err := p.BuildIndexes(context.Background(), writePipelineCorpus(t))
	if err != nil {
		t.Fatalf("BuildIndexes() error = %v", err)
	}

	if result.Sources != 2 {
		t.Errorf("BuildIndexes() Sources = %d, want 2", result.Sources)
	}
	if result.Pages != 3 {
		t.Errorf("BuildIndexes() Pages = %d, want 3", result.Pages)
	}
	if result.Chunks == 0 {
		t.Error("BuildIndexes() Chunks = 0, want chunks")
	}
	if result.Segments == 0 {
		t.Error("BuildIndexes() Segments = 0, want routing segments")
	}

	count, err := chunkRepo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != result.Chunks {
		t.Errorf("stored chunk count = %d, want %d", count, result.Chunks)
	}

	sources, err := sourceRepo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("ListAll() returned %d sources, want 2", len(sources))
	}
	for _, source := range sources {
		if source.SegmentCount == 0 {
			t.Errorf("source %s has zero routing segments", source.SourceKey)
		}
	}
}

// Chunk IDs must come out strictly increasing across sources even though
// per-source chunking runs in parallel.
func TestPipeline_BuildIndexes_MonotonicChunkIDs(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(t)

	vectorStore := vsmocks.NewMockVectorStore(ctrl)
	vectorStore.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	chunkRepo := storage.NewChunkRepo(db)

	p := NewPipeline(
		corpus.NewLoader(),
		NewChunker(40, 0),
		NewRoutingBuilder(6000, 4, 200, 0),
		&stubEmbedder{dim: 4},
		vectorStore,
		"chunks",
		"routing",
		storage.NewSourceRepo(db),
		chunkRepo,
		storage.NewSegmentRepo(db),
		4,
	)

	result, err := p.BuildIndexes(context.Background(), writePipelineCorpus(t))
	if err != nil {
		t.Fatalf("BuildIndexes() error = %v", err)
	}

	records, err := chunkRepo.ListBySourceKeys(context.Background(), []string{"paper a.txt", "paper b.txt"}, 1000)
	if err != nil {
		t.Fatalf("ListBySourceKeys() error = %v", err)
	}
	if len(records) != result.Chunks {
		t.Fatalf("ListBySourceKeys() returned %d records, want %d", len(records), result.Chunks)
	}

	for i, record := range records {
		if record.ChunkID != int64(i) {
			t.Errorf("record[%d].ChunkID = %d, want %d", i, record.ChunkID, i)
		}
	}
}

func TestPipeline_BuildIndexes_EmptyCorpusFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(t)

	p := NewPipeline(
		corpus.NewLoader(),
		NewChunker(800, 120),
		NewRoutingBuilder(6000, 4, 800, 120),
		&stubEmbedder{dim: 4},
		vsmocks.NewMockVectorStore(ctrl),
		"chunks",
		"routing",
		storage.NewSourceRepo(db),
		storage.NewChunkRepo(db),
		storage.NewSegmentRepo(db),
		1,
	)

	if _, err := p.BuildIndexes(context.Background(), t.TempDir()); err == nil {
		t.Error("BuildIndexes() on empty corpus expected error, got nil")
	}
}

// flakyEmbedder succeeds for a fixed number of calls, then fails. It
// simulates an embedding service that dies partway through an ingestion run.
type flakyEmbedder struct {
	allow int
	calls int
}

func (f *flakyEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls > f.allow {
		return nil, errors.New("embedding service unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, 4)
	}
	return vectors, nil
}

// An embedding failure partway through a rebuild must leave the previous
// index untouched: nothing is wiped until every vector is computed.
func TestPipeline_BuildIndexes_EmbedFailureKeepsPreviousIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(t)

	vectorStore := vsmocks.NewMockVectorStore(ctrl)
	vectorStore.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	chunkRepo := storage.NewChunkRepo(db)
	sourceRepo := storage.NewSourceRepo(db)
	segmentRepo := storage.NewSegmentRepo(db)

	newPipeline := func(embedder Embedder) *Pipeline {
		return NewPipeline(
			corpus.NewLoader(),
			NewChunker(80, 10),
			NewRoutingBuilder(6000, 4, 200, 20),
			embedder,
			vectorStore,
			"chunks",
			"routing",
			sourceRepo,
			chunkRepo,
			segmentRepo,
			2,
		)
	}

	dir := writePipelineCorpus(t)
	first, err := newPipeline(&stubEmbedder{dim: 4}).BuildIndexes(context.Background(), dir)
	if err != nil {
		t.Fatalf("first BuildIndexes() error = %v", err)
	}

	// One embedding call succeeds (the chunk batch), the next one fails
	// (the routing segments), so the failure lands mid-run.
	if _, err := newPipeline(&flakyEmbedder{allow: 1}).BuildIndexes(context.Background(), dir); err == nil {
		t.Fatal("BuildIndexes() with a failing embedder expected error, got nil")
	}

	count, err := chunkRepo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != first.Chunks {
		t.Errorf("chunk count after failed rebuild = %d, want %d from the previous run", count, first.Chunks)
	}

	sources, err := sourceRepo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(sources) != first.Sources {
		t.Errorf("source count after failed rebuild = %d, want %d", len(sources), first.Sources)
	}
}

// A rebuild replaces everything: records from the previous run must not
// survive the second.
func TestPipeline_BuildIndexes_RebuildsWholesale(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(t)

	vectorStore := vsmocks.NewMockVectorStore(ctrl)
	vectorStore.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	chunkRepo := storage.NewChunkRepo(db)

	p := NewPipeline(
		corpus.NewLoader(),
		NewChunker(80, 10),
		NewRoutingBuilder(6000, 4, 200, 20),
		&stubEmbedder{dim: 4},
		vectorStore,
		"chunks",
		"routing",
		storage.NewSourceRepo(db),
		chunkRepo,
		storage.NewSegmentRepo(db),
		2,
	)

	dir := writePipelineCorpus(t)
	first, err := p.BuildIndexes(context.Background(), dir)
	if err != nil {
		t.Fatalf("first BuildIndexes() error = %v", err)
	}
	second, err := p.BuildIndexes(context.Background(), dir)
	if err != nil {
		t.Fatalf("second BuildIndexes() error = %v", err)
	}

	if first.Chunks != second.Chunks {
		t.Errorf("rebuild chunk counts differ: %d vs %d", first.Chunks, second.Chunks)
	}

	count, err := chunkRepo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != second.Chunks {
		t.Errorf("stored chunk count after rebuild = %d, want %d", count, second.Chunks)
	}
}
