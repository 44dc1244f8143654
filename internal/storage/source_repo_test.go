package storage

import (
	"context"
	"testing"
)

func TestSourceRepo_UpsertInsertsAndUpdates(t *testing.T) {
	db := openTestDB(t)
	repo := NewSourceRepo(db)

	record := &SourceRecord{SourceKey: "a.txt", DisplayName: "A.txt", Pages: 3, SegmentCount: 2}
	if err := repo.Upsert(context.Background(), record); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// Same key again: the row is updated, not duplicated.
	record.Pages = 5
	record.SegmentCount = 0
	if err := repo.Upsert(context.Background(), record); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	sources, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("ListAll() returned %d sources, want 1", len(sources))
	}
	if sources[0].Pages != 5 || sources[0].SegmentCount != 0 {
		t.Errorf("ListAll()[0] = %+v, want updated pages and segment count", sources[0])
	}
}

func TestSourceRepo_ListAllOrderedByDisplayName(t *testing.T) {
	db := openTestDB(t)
	repo := NewSourceRepo(db)

	records := []*SourceRecord{
		{SourceKey: "zeta.txt", DisplayName: "Zeta.txt", Pages: 1, SegmentCount: 1},
		{SourceKey: "alpha.txt", DisplayName: "Alpha.txt", Pages: 1, SegmentCount: 1},
	}
	for _, record := range records {
		if err := repo.Upsert(context.Background(), record); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	sources, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("ListAll() returned %d sources, want 2", len(sources))
	}
	if sources[0].DisplayName != "Alpha.txt" || sources[1].DisplayName != "Zeta.txt" {
		t.Errorf("ListAll() order = [%s, %s], want [Alpha.txt, Zeta.txt]",
			sources[0].DisplayName, sources[1].DisplayName)
	}
}

// Deleting sources cascades to their chunks and routing segments, so a
// wholesale rebuild never leaves orphan rows.
func TestSourceRepo_DeleteAllCascades(t *testing.T) {
	db := openTestDB(t)
	sourceRepo := NewSourceRepo(db)
	chunkRepo := NewChunkRepo(db)
	segmentRepo := NewSegmentRepo(db)

	seedSource(t, db, "a.txt", "A.txt")
	if err := chunkRepo.Insert(context.Background(), chunkFixture("p1", 1, "a.txt")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	segment := &RoutingSegmentRecord{PointID: "s1", SourceKey: "a.txt", SegmentIndex: 0, Text: "seg"}
	if err := segmentRepo.Insert(context.Background(), segment); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := sourceRepo.DeleteAll(context.Background()); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}

	count, err := chunkRepo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("chunk count after source DeleteAll() = %d, want 0", count)
	}

	segments, err := segmentRepo.CountBySource(context.Background(), "a.txt")
	if err != nil {
		t.Fatalf("CountBySource() error = %v", err)
	}
	if segments != 0 {
		t.Errorf("segment count after source DeleteAll() = %d, want 0", segments)
	}
}
