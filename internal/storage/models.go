package storage

import "time"

// SourceRecord is one ingested source document.
type SourceRecord struct {
	SourceKey    string // Canonical key (primary key, joins both indexes)
	DisplayName  string // Human-readable name shown in citations
	Pages        int    // Number of non-empty pages loaded
	SegmentCount int    // Routing segments produced (0 means unroutable)
	CreatedAt    time.Time
}

// ChunkRecord is one retrieval chunk, the payload behind a vector point.
type ChunkRecord struct {
	PointID   string // UUID, same as the vector store point ID
	ChunkID   int64  // Monotonic ID unique within one ingestion run
	SourceKey string
	Source    string
	Page      int // Zero-based page index, or -1 when unknown
	BlockType string
	Text      string
}

// RoutingSegmentRecord is one routing segment, the payload behind a routing
// index point.
type RoutingSegmentRecord struct {
	PointID      string
	SourceKey    string
	SegmentIndex int
	Text         string
}
