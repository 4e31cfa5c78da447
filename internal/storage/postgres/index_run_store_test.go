package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/storage"
)

func createTestRun(runID string, created time.Time) (*domain.IndexRun, []domain.DailyRecord, *domain.SummaryRecord) {
	run := &domain.IndexRun{
		RunID:        runID,
		UniverseSize: 100,
		BaseLevel:    100,
		StartDate:    tradeDate(1),
		EndDate:      tradeDate(3),
		Days:         3,
		CreatedAt:    created,
	}
	daily := []domain.DailyRecord{
		{
			Date: tradeDate(1), IndexLevel: 100, Constituents: "A,B", ConstituentCount: 2,
			IsRebalanceDay: true, RebalanceDate: "2024-04-01", TickersAdded: "A,B", CompositionChangeCount: 2,
		},
		{
			Date: tradeDate(2), IndexLevel: 102.5, DailyReturnPercent: 2.5, CumulativeReturnPercent: 2.5,
			Constituents: "A,B", ConstituentCount: 2, ReturnSampleSize: 2,
		},
		{
			Date: tradeDate(3), IndexLevel: 111.8182, DailyReturnPercent: 9.0909, CumulativeReturnPercent: 11.8182,
			Constituents: "A,C", ConstituentCount: 2, IsRebalanceDay: true, RebalanceDate: "2024-04-03",
			TickersAdded: "C", TickersRemoved: "B", CompositionChangeCount: 2, ReturnSampleSize: 1,
		},
	}
	summary := &domain.SummaryRecord{
		AggregateReturnPercent:  11.8182,
		BestPerformingDate:      tradeDate(3),
		BestReturnPercent:       9.0909,
		WorstPerformingDate:     tradeDate(1),
		WorstReturnPercent:      0,
		TotalCompositionChanges: 2,
	}
	return run, daily, summary
}

func TestIndexRunStore_InsertAndRead(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewIndexRunStore(pool)

	run, daily, summary := createTestRun("run-001", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.Insert(ctx, run, daily, summary))

	gotRun, err := store.GetRun(ctx, "run-001")
	require.NoError(t, err)
	assert.Equal(t, 100, gotRun.UniverseSize)
	assert.Equal(t, 3, gotRun.Days)
	assert.True(t, gotRun.StartDate.Equal(tradeDate(1)))
	assert.True(t, gotRun.CreatedAt.Equal(run.CreatedAt))

	records, err := store.GetDailyRecords(ctx, "run-001")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, daily[2].TickersAdded, records[2].TickersAdded)
	assert.Equal(t, daily[2].TickersRemoved, records[2].TickersRemoved)
	assert.Equal(t, daily[2].RebalanceDate, records[2].RebalanceDate)
	assert.InDelta(t, daily[2].IndexLevel, records[2].IndexLevel, 1e-9)
	assert.Equal(t, 1, records[2].ReturnSampleSize)
	assert.False(t, records[1].IsRebalanceDay)

	gotSummary, err := store.GetSummary(ctx, "run-001")
	require.NoError(t, err)
	assert.InDelta(t, 11.8182, gotSummary.AggregateReturnPercent, 1e-9)
	assert.True(t, gotSummary.BestPerformingDate.Equal(tradeDate(3)))
	assert.Equal(t, 2, gotSummary.TotalCompositionChanges)
}

func TestIndexRunStore_DuplicateRun(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewIndexRunStore(pool)

	run, daily, summary := createTestRun("run-dup", time.Now().UTC())
	require.NoError(t, store.Insert(ctx, run, daily, summary))

	err := store.Insert(ctx, run, daily, summary)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestIndexRunStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewIndexRunStore(pool)

	_, err := store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetDailyRecords(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetSummary(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIndexRunStore_ListRuns(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewIndexRunStore(pool)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run, daily, summary := createTestRun(id, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, store.Insert(ctx, run, daily, summary))
	}

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-c", runs[0].RunID)
	assert.Equal(t, "run-a", runs[2].RunID)
}
