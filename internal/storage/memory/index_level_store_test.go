package memory

import (
	"context"
	"errors"
	"testing"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/storage"
)

func TestIndexLevelStore_InsertBulkAndGet(t *testing.T) {
	store := NewIndexLevelStore()
	ctx := context.Background()

	points := []*domain.IndexLevelPoint{
		{RunID: "r1", Date: d(2), Level: 102.5, DailyReturnPct: 2.5, CumulativeReturnPct: 2.5, ConstituentCount: 2},
		{RunID: "r1", Date: d(1), Level: 100, ConstituentCount: 2, IsRebalanceDay: true},
		{RunID: "r2", Date: d(1), Level: 100, ConstituentCount: 3, IsRebalanceDay: true},
	}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(result))
	}
	if result[0].Level != 100 || result[1].Level != 102.5 {
		t.Errorf("Expected points ordered by date, got %v then %v", result[0].Level, result[1].Level)
	}
}

func TestIndexLevelStore_DuplicateKey(t *testing.T) {
	store := NewIndexLevelStore()
	ctx := context.Background()

	points := []*domain.IndexLevelPoint{{RunID: "r1", Date: d(1), Level: 100}}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.InsertBulk(ctx, points); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestIndexLevelStore_EmptyRun(t *testing.T) {
	store := NewIndexLevelStore()

	result, err := store.GetByRun(context.Background(), "none")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("Expected no points, got %d", len(result))
	}
}
