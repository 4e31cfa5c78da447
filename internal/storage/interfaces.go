package storage

import (
	"context"
	"time"

	"equal-weight-index/internal/domain"
)

// PriceStore provides access to stock_prices storage.
type PriceStore interface {
	// InsertBulk adds multiple rows atomically. Fails entire batch on duplicate (ticker, date).
	InsertBulk(ctx context.Context, rows []*domain.PriceRow) error

	// Truncate removes every row. Used before a full reload.
	Truncate(ctx context.Context) error

	// GetByDateRange retrieves rows within [start, end] (inclusive), ordered by date, ticker.
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.PriceRow, error)

	// GetAll retrieves every row, ordered by date, ticker.
	GetAll(ctx context.Context) ([]*domain.PriceRow, error)

	// TopNByMarketCap retrieves, for each date, the n rows with the largest
	// market cap. Ties are broken by ticker ascending. Ordered by date, rank.
	TopNByMarketCap(ctx context.Context, n int) ([]*domain.PriceRow, error)
}

// IndexRunStore provides access to index_runs and its child tables.
type IndexRunStore interface {
	// Insert persists a run with its daily records and summary atomically.
	// Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.IndexRun, daily []domain.DailyRecord, summary *domain.SummaryRecord) error

	// GetRun retrieves a run by ID. Returns ErrNotFound if not exists.
	GetRun(ctx context.Context, runID string) (*domain.IndexRun, error)

	// ListRuns retrieves all runs, newest first.
	ListRuns(ctx context.Context) ([]*domain.IndexRun, error)

	// GetDailyRecords retrieves daily records for a run, ordered by date ASC.
	// Returns ErrNotFound if the run does not exist.
	GetDailyRecords(ctx context.Context, runID string) ([]domain.DailyRecord, error)

	// GetSummary retrieves the summary for a run. Returns ErrNotFound if not exists.
	GetSummary(ctx context.Context, runID string) (*domain.SummaryRecord, error)
}

// IndexLevelStore provides access to index_levels storage.
type IndexLevelStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, date).
	InsertBulk(ctx context.Context, points []*domain.IndexLevelPoint) error

	// GetByRun retrieves all points for a run, ordered by date ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.IndexLevelPoint, error)
}
