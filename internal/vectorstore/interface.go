package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks corpusqa/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// Filter narrows a similarity search. SourceKeys restricts hits to points
// whose source_key payload matches one of the given keys; empty means no
// restriction.
type Filter struct {
	SourceKeys []string
}

// VectorStore defines the interface for vector storage operations. Both the
// chunk index and the routing index live behind this interface, in separate
// collections of the same store.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search with an optional filter.
	Search(ctx context.Context, collection string, query []float32, k int, filter *Filter) ([]SearchResult, error)
}
