package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SegmentRepo stores routing segment payloads alongside their vector points.
// Kept as a concrete type: nothing on the query path reads segments back,
// they exist for rebuild inspection and debugging.
type SegmentRepo struct {
	db *sql.DB
}

// NewSegmentRepo creates a new SegmentRepo.
func NewSegmentRepo(db *sql.DB) *SegmentRepo {
	return &SegmentRepo{db: db}
}

// Insert inserts a single routing segment record.
func (r *SegmentRepo) Insert(ctx context.Context, segment *RoutingSegmentRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO routing_segments (point_id, source_key, segment_index, text) VALUES (?, ?, ?, ?)",
		segment.PointID, segment.SourceKey, segment.SegmentIndex, segment.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to insert routing segment: %w", err)
	}
	return nil
}

// CountBySource returns the number of stored segments for one source key.
func (r *SegmentRepo) CountBySource(ctx context.Context, sourceKey string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM routing_segments WHERE source_key = ?", sourceKey,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count routing segments: %w", err)
	}
	return count, nil
}

// DeleteAll wipes the routing_segments table.
func (r *SegmentRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM routing_segments"); err != nil {
		return fmt.Errorf("failed to delete routing segments: %w", err)
	}
	return nil
}
