package indexer

// PageUnknown marks a chunk whose originating page could not be determined.
const PageUnknown = -1

// BlockType classifies the structural kind of a text block.
type BlockType string

const (
	BlockTable    BlockType = "table"
	BlockCode     BlockType = "code"
	BlockEquation BlockType = "equation"
	BlockCaption  BlockType = "caption"
	BlockText     BlockType = "text"
)

// Chunk is a retrieval unit derived from one corpus page.
type Chunk struct {
	// ChunkID is unique and strictly increasing within one ingestion run.
	ChunkID int64
	// Source is the display name of the originating document.
	Source string
	// SourceKey is the canonical key joining the chunk and routing indexes.
	SourceKey string
	// Page is the zero-based page index, or PageUnknown.
	Page int
	// BlockType is the classified kind of the block this chunk came from.
	BlockType BlockType
	// Text is the chunk content.
	Text string
}

// RoutingSegment is a small slice of a document's introductory content used
// only for document-level routing, never for answer context.
type RoutingSegment struct {
	Source       string
	SourceKey    string
	SegmentIndex int
	SegmentCount int
	Text         string
}

// Sequence allocates monotonically increasing chunk IDs. The ingestion run
// owns it explicitly rather than relying on hidden process state, so runs
// stay reproducible and parallel per-source work can be renumbered after a
// deterministic merge.
type Sequence struct {
	next int64
}

// NewSequence creates a sequence whose first Next() returns start.
func NewSequence(start int64) *Sequence {
	return &Sequence{next: start}
}

// Next returns the next ID and advances the sequence.
func (s *Sequence) Next() int64 {
	id := s.next
	s.next++
	return id
}
