package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_source_store.go -package=mocks corpusqa/internal/storage SourceStore

import (
	"context"
	"database/sql"
	"fmt"
)

// SourceStore defines the interface for source document records.
type SourceStore interface {
	// Upsert inserts or updates a source record keyed by source_key.
	Upsert(ctx context.Context, source *SourceRecord) error
	// ListAll returns all sources ordered by display name.
	ListAll(ctx context.Context) ([]*SourceRecord, error)
	// DeleteAll wipes the sources table (cascades to chunks and segments).
	DeleteAll(ctx context.Context) error
}

// SourceRepo provides methods for source operations.
// It implements the SourceStore interface.
type SourceRepo struct {
	db *sql.DB
}

// NewSourceRepo creates a new SourceRepo.
func NewSourceRepo(db *sql.DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// Upsert inserts or updates a source record keyed by source_key.
func (r *SourceRepo) Upsert(ctx context.Context, source *SourceRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sources (source_key, display_name, pages, segment_count) VALUES (?, ?, ?, ?)
		 ON CONFLICT(source_key) DO UPDATE SET display_name = excluded.display_name,
		 pages = excluded.pages, segment_count = excluded.segment_count`,
		source.SourceKey, source.DisplayName, source.Pages, source.SegmentCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}
	return nil
}

// ListAll returns all sources ordered by display name.
func (r *SourceRepo) ListAll(ctx context.Context) ([]*SourceRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT source_key, display_name, pages, segment_count, created_at FROM sources ORDER BY display_name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var sources []*SourceRecord
	for rows.Next() {
		var source SourceRecord
		if err := rows.Scan(&source.SourceKey, &source.DisplayName, &source.Pages, &source.SegmentCount, &source.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, &source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sources, nil
}

// DeleteAll wipes the sources table.
func (r *SourceRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sources"); err != nil {
		return fmt.Errorf("failed to delete sources: %w", err)
	}
	return nil
}
