package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks corpusqa/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// Insert inserts a single chunk. PointID must be set before calling.
	Insert(ctx context.Context, chunk *ChunkRecord) error
	// GetByPointID gets a chunk by its vector point ID. Returns ErrNotFound if absent.
	GetByPointID(ctx context.Context, pointID string) (*ChunkRecord, error)
	// ListBySourceKeys returns up to limit chunks whose source_key is in keys,
	// ordered by chunk_id. Used by the retrieval fallback that scans the index
	// by membership instead of similarity.
	ListBySourceKeys(ctx context.Context, keys []string, limit int) ([]*ChunkRecord, error)
	// Count returns the total number of stored chunks.
	Count(ctx context.Context) (int, error)
	// DeleteAll wipes the chunks table; ingestion rebuilds wholesale.
	DeleteAll(ctx context.Context) error
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// DB exposes the underlying database for stats queries.
func (r *ChunkRepo) DB() *sql.DB {
	return r.db
}

// Insert inserts a single chunk. PointID must be set before calling.
func (r *ChunkRepo) Insert(ctx context.Context, chunk *ChunkRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO chunks (point_id, chunk_id, source_key, source, page, block_type, text) VALUES (?, ?, ?, ?, ?, ?, ?)",
		chunk.PointID, chunk.ChunkID, chunk.SourceKey, chunk.Source, chunk.Page, chunk.BlockType, chunk.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// GetByPointID gets a chunk by its vector point ID. Returns ErrNotFound if absent.
func (r *ChunkRepo) GetByPointID(ctx context.Context, pointID string) (*ChunkRecord, error) {
	var chunk ChunkRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT point_id, chunk_id, source_key, source, page, block_type, text FROM chunks WHERE point_id = ?",
		pointID,
	).Scan(&chunk.PointID, &chunk.ChunkID, &chunk.SourceKey, &chunk.Source, &chunk.Page, &chunk.BlockType, &chunk.Text)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}

	return &chunk, nil
}

// ListBySourceKeys returns up to limit chunks for the given source keys,
// ordered by chunk_id. Returns an empty slice when keys is empty.
func (r *ChunkRepo) ListBySourceKeys(ctx context.Context, keys []string, limit int) ([]*ChunkRecord, error) {
	if len(keys) == 0 || limit <= 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(keys)+1)
	for _, key := range keys {
		args = append(args, key)
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		"SELECT point_id, chunk_id, source_key, source, page, block_type, text FROM chunks WHERE source_key IN (%s) ORDER BY chunk_id LIMIT ?",
		placeholders,
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks by source keys: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []*ChunkRecord
	for rows.Next() {
		var chunk ChunkRecord
		if err := rows.Scan(&chunk.PointID, &chunk.ChunkID, &chunk.SourceKey, &chunk.Source, &chunk.Page, &chunk.BlockType, &chunk.Text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

// Count returns the total number of stored chunks.
func (r *ChunkRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// DeleteAll wipes the chunks table.
func (r *ChunkRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}
