package indexer

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"corpusqa/internal/contextutil"
	"corpusqa/internal/corpus"
	"corpusqa/internal/storage"
	"corpusqa/internal/vectorstore"
)

const embedBatchSize = 64

// Embedder turns texts into fixed-length vectors. *llm.EmbeddingsClient
// satisfies it.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline is the dual index builder: it drives the loader, chunker and
// routing builder over the corpus, embeds everything, and persists the chunk
// index and the routing index. Both indexes are rebuilt wholesale; there is
// no incremental update.
type Pipeline struct {
	loader            *corpus.Loader
	chunker           *Chunker
	routing           *RoutingBuilder
	embedder          Embedder
	vectorStore       vectorstore.VectorStore
	chunkCollection   string
	routingCollection string
	sourceRepo        storage.SourceStore
	chunkRepo         storage.ChunkStore
	segmentRepo       *storage.SegmentRepo
	workers           int
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	loader *corpus.Loader,
	chunker *Chunker,
	routing *RoutingBuilder,
	embedder Embedder,
	vectorStore vectorstore.VectorStore,
	chunkCollection string,
	routingCollection string,
	sourceRepo storage.SourceStore,
	chunkRepo storage.ChunkStore,
	segmentRepo *storage.SegmentRepo,
	workers int,
) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		loader:            loader,
		chunker:           chunker,
		routing:           routing,
		embedder:          embedder,
		vectorStore:       vectorStore,
		chunkCollection:   chunkCollection,
		routingCollection: routingCollection,
		sourceRepo:        sourceRepo,
		chunkRepo:         chunkRepo,
		segmentRepo:       segmentRepo,
		workers:           workers,
	}
}

// BuildResult summarizes one ingestion run.
type BuildResult struct {
	Sources  int
	Pages    int
	Chunks   int
	Segments int
}

// BuildIndexes ingests the corpus directory into both indexes. It aborts
// without writing anything if the corpus is empty, chunking yields zero
// chunks, or any embedding call fails; the previous index is only wiped
// once every vector has been computed.
func (p *Pipeline) BuildIndexes(ctx context.Context, corpusDir string) (*BuildResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	docs, err := p.loader.Load(ctx, corpusDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	logger.InfoContext(ctx, "corpus loaded", "dir", corpusDir, "pages", len(docs))

	chunks, err := p.chunkAllSources(ctx, docs)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunking produced zero chunks")
	}

	segments := p.routing.Build(docs)
	logger.InfoContext(ctx, "segmentation complete", "chunks", len(chunks), "routing_segments", len(segments))

	// Embed everything before touching either store: an embedding failure
	// must leave the previous index intact.
	chunkRecords, chunkPoints, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	segmentRecords, segmentPoints, err := p.embedSegments(ctx, segments)
	if err != nil {
		return nil, err
	}

	if err := p.resetStores(ctx); err != nil {
		return nil, err
	}

	if err := p.storeSources(ctx, docs, segments); err != nil {
		return nil, err
	}
	if err := p.storeChunks(ctx, chunkRecords, chunkPoints); err != nil {
		return nil, err
	}
	if err := p.storeSegments(ctx, segmentRecords, segmentPoints); err != nil {
		return nil, err
	}

	sources := make(map[string]struct{})
	for _, doc := range docs {
		sources[doc.SourceKey] = struct{}{}
	}

	result := &BuildResult{
		Sources:  len(sources),
		Pages:    len(docs),
		Chunks:   len(chunks),
		Segments: len(segments),
	}
	logger.InfoContext(ctx, "ingestion complete",
		"sources", result.Sources, "pages", result.Pages,
		"chunks", result.Chunks, "routing_segments", result.Segments)
	return result, nil
}

// chunkAllSources chunks each source in parallel, then merges by source
// order and renumbers so chunk IDs are globally unique and strictly
// increasing regardless of worker scheduling.
func (p *Pipeline) chunkAllSources(ctx context.Context, docs []corpus.Document) ([]Chunk, error) {
	bySource := make(map[string][]corpus.Document)
	var order []string
	for _, doc := range docs {
		if _, seen := bySource[doc.SourceKey]; !seen {
			order = append(order, doc.SourceKey)
		}
		bySource[doc.SourceKey] = append(bySource[doc.SourceKey], doc)
	}
	sort.Strings(order)

	perSource := make([][]Chunk, len(order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, key := range order {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			pages := bySource[key]
			sort.SliceStable(pages, func(a, b int) bool { return pages[a].Page < pages[b].Page })
			perSource[i] = p.chunker.ChunkDocuments(pages, NewSequence(0))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to chunk corpus: %w", err)
	}

	seq := NewSequence(0)
	var merged []Chunk
	for _, chunks := range perSource {
		for _, chunk := range chunks {
			chunk.ChunkID = seq.Next()
			merged = append(merged, chunk)
		}
	}
	return merged, nil
}

func (p *Pipeline) resetStores(ctx context.Context) error {
	if err := p.segmentRepo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to reset routing segments: %w", err)
	}
	if err := p.chunkRepo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to reset chunks: %w", err)
	}
	if err := p.sourceRepo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to reset sources: %w", err)
	}
	return nil
}

func (p *Pipeline) storeSources(ctx context.Context, docs []corpus.Document, segments []RoutingSegment) error {
	pages := make(map[string]int)
	display := make(map[string]string)
	for _, doc := range docs {
		pages[doc.SourceKey]++
		display[doc.SourceKey] = doc.Source
	}
	segmentCounts := make(map[string]int)
	for _, segment := range segments {
		segmentCounts[segment.SourceKey]++
	}

	keys := make([]string, 0, len(pages))
	for key := range pages {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		record := &storage.SourceRecord{
			SourceKey:    key,
			DisplayName:  display[key],
			Pages:        pages[key],
			SegmentCount: segmentCounts[key],
		}
		if err := p.sourceRepo.Upsert(ctx, record); err != nil {
			return fmt.Errorf("failed to store source %s: %w", key, err)
		}
	}
	return nil
}

// embedChunks embeds chunks in batches and builds the SQLite records and
// vector points for them without writing anything. The source_key is already
// stamped on every chunk, so payloads and vectors always agree.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []Chunk) ([]*storage.ChunkRecord, []vectorstore.Point, error) {
	records := make([]*storage.ChunkRecord, 0, len(chunks))
	points := make([]vectorstore.Point, 0, len(chunks))

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}
		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
		}

		for i, chunk := range batch {
			pointID := uuid.New().String()

			records = append(records, &storage.ChunkRecord{
				PointID:   pointID,
				ChunkID:   chunk.ChunkID,
				SourceKey: chunk.SourceKey,
				Source:    chunk.Source,
				Page:      chunk.Page,
				BlockType: string(chunk.BlockType),
				Text:      chunk.Text,
			})
			points = append(points, vectorstore.Point{
				ID:  pointID,
				Vec: vectors[i],
				Meta: map[string]any{
					"source":     chunk.Source,
					"source_key": chunk.SourceKey,
					"page":       chunk.Page,
					"chunk_id":   chunk.ChunkID,
					"block_type": string(chunk.BlockType),
				},
			})
		}
	}
	return records, points, nil
}

// embedSegments is the routing-index counterpart of embedChunks.
func (p *Pipeline) embedSegments(ctx context.Context, segments []RoutingSegment) ([]*storage.RoutingSegmentRecord, []vectorstore.Point, error) {
	records := make([]*storage.RoutingSegmentRecord, 0, len(segments))
	points := make([]vectorstore.Point, 0, len(segments))

	for start := 0; start < len(segments); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(segments) {
			end = len(segments)
		}
		batch := segments[start:end]

		texts := make([]string, len(batch))
		for i, segment := range batch {
			texts[i] = segment.Text
		}
		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to embed routing segments: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
		}

		for i, segment := range batch {
			pointID := uuid.New().String()

			records = append(records, &storage.RoutingSegmentRecord{
				PointID:      pointID,
				SourceKey:    segment.SourceKey,
				SegmentIndex: segment.SegmentIndex,
				Text:         segment.Text,
			})
			points = append(points, vectorstore.Point{
				ID:  pointID,
				Vec: vectors[i],
				Meta: map[string]any{
					"source":        segment.Source,
					"source_key":    segment.SourceKey,
					"segment_index": segment.SegmentIndex,
					"segment_count": segment.SegmentCount,
				},
			})
		}
	}
	return records, points, nil
}

func (p *Pipeline) storeChunks(ctx context.Context, records []*storage.ChunkRecord, points []vectorstore.Point) error {
	for _, record := range records {
		if err := p.chunkRepo.Insert(ctx, record); err != nil {
			return fmt.Errorf("failed to store chunk %d: %w", record.ChunkID, err)
		}
	}
	for start := 0; start < len(points); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(points) {
			end = len(points)
		}
		if err := p.vectorStore.Upsert(ctx, p.chunkCollection, points[start:end]); err != nil {
			return fmt.Errorf("failed to upsert chunk vectors: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) storeSegments(ctx context.Context, records []*storage.RoutingSegmentRecord, points []vectorstore.Point) error {
	for _, record := range records {
		if err := p.segmentRepo.Insert(ctx, record); err != nil {
			return fmt.Errorf("failed to store routing segment: %w", err)
		}
	}
	for start := 0; start < len(points); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(points) {
			end = len(points)
		}
		if err := p.vectorStore.Upsert(ctx, p.routingCollection, points[start:end]); err != nil {
			return fmt.Errorf("failed to upsert routing vectors: %w", err)
		}
	}
	return nil
}
