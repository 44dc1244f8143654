package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"corpusqa/internal/storage"
)

// ChunkerVersion identifies the chunking implementation. Bump it when the
// classification rules or splitter behavior change in a way that requires a
// rebuild.
const ChunkerVersion = "v1.0"

// CoverageStats describes the current state of the built indexes.
type CoverageStats struct {
	// Sources is the number of ingested source documents.
	Sources int `json:"sources"`
	// UnroutableSources is the number of sources with zero routing segments.
	UnroutableSources int `json:"unroutable_sources"`
	// Chunks is the total number of chunks in the chunk index.
	Chunks int `json:"chunks"`
	// RoutingSegments is the total number of segments in the routing index.
	RoutingSegments int `json:"routing_segments"`
	// ChunksByBlockType breaks chunks down by classified block type.
	ChunksByBlockType map[string]int `json:"chunks_by_block_type"`
	// ChunkCharStats describes chunk sizes in runes.
	ChunkCharStats ChunkCharStats `json:"chunk_char_stats"`
	// ChunkerVersion is the chunker implementation identifier.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is a short hash of the chunker version, embedding model
	// and chunking parameters; it changes whenever a rebuild is required.
	IndexVersion string `json:"index_version"`
}

// ChunkCharStats summarizes chunk sizes.
type ChunkCharStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// StatsReader computes coverage stats from the SQLite payload store.
type StatsReader struct {
	chunkRepo *storage.ChunkRepo
	chunkSize int
	overlap   int
}

// NewStatsReader creates a stats reader over the chunk repo.
func NewStatsReader(chunkRepo *storage.ChunkRepo, chunkSize, overlap int) *StatsReader {
	return &StatsReader{chunkRepo: chunkRepo, chunkSize: chunkSize, overlap: overlap}
}

// Coverage queries the payload store and computes index coverage stats.
func (s *StatsReader) Coverage(ctx context.Context, embeddingModel string) (*CoverageStats, error) {
	db := s.chunkRepo.DB()
	if db == nil {
		return nil, fmt.Errorf("chunk repo has no database")
	}

	stats := &CoverageStats{
		ChunksByBlockType: make(map[string]int),
		ChunkerVersion:    ChunkerVersion,
	}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&stats.Sources); err != nil {
		return nil, fmt.Errorf("failed to count sources: %w", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources WHERE segment_count = 0").Scan(&stats.UnroutableSources); err != nil {
		return nil, fmt.Errorf("failed to count unroutable sources: %w", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM routing_segments").Scan(&stats.RoutingSegments); err != nil {
		return nil, fmt.Errorf("failed to count routing segments: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT block_type, text FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var sizes []int
	for rows.Next() {
		var blockType, text string
		if err := rows.Scan(&blockType, &text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		stats.Chunks++
		stats.ChunksByBlockType[blockType]++
		sizes = append(sizes, utf8.RuneCountInString(text))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	stats.ChunkCharStats = computeCharStats(sizes)

	versionInput := fmt.Sprintf("%s|%s|size=%d|overlap=%d", ChunkerVersion, embeddingModel, s.chunkSize, s.overlap)
	hash := sha256.Sum256([]byte(versionInput))
	stats.IndexVersion = hex.EncodeToString(hash[:])[:16]

	return stats, nil
}

// computeCharStats computes min, max, mean and p95 from chunk sizes.
func computeCharStats(sizes []int) ChunkCharStats {
	if len(sizes) == 0 {
		return ChunkCharStats{}
	}

	sorted := make([]int, len(sizes))
	copy(sorted, sizes)
	sort.Ints(sorted)

	sum := 0
	for _, size := range sizes {
		sum += size
	}
	mean := float64(sum) / float64(len(sizes))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkCharStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95Index],
	}
}
