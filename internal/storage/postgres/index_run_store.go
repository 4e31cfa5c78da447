package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/storage"
)

// IndexRunStore implements storage.IndexRunStore using PostgreSQL.
type IndexRunStore struct {
	pool *Pool
}

// NewIndexRunStore creates a new IndexRunStore.
func NewIndexRunStore(pool *Pool) *IndexRunStore {
	return &IndexRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IndexRunStore = (*IndexRunStore)(nil)

// Insert persists the run, its daily records and its summary in one
// transaction. Returns ErrDuplicateKey if run_id exists.
func (s *IndexRunStore) Insert(ctx context.Context, run *domain.IndexRun, daily []domain.DailyRecord, summary *domain.SummaryRecord) (err error) {
	if run == nil || run.RunID == "" || summary == nil {
		return storage.ErrInvalidInput
	}
	defer observe("insert_run", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO index_runs (
			run_id, universe_size, base_level, start_date, end_date, days, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		run.RunID, run.UniverseSize, run.BaseLevel,
		run.StartDate, run.EndDate, run.Days, run.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert index run: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"index_daily_records"},
		[]string{
			"run_id", "trade_date", "index_level", "daily_return_pct", "cumulative_return_pct",
			"constituents", "constituent_count", "is_rebalance_day", "rebalance_date",
			"tickers_added", "tickers_removed", "composition_change_count", "return_sample_size",
		},
		pgx.CopyFromSlice(len(daily), func(i int) ([]any, error) {
			r := daily[i]
			return []any{
				run.RunID, r.Date, r.IndexLevel, r.DailyReturnPercent, r.CumulativeReturnPercent,
				r.Constituents, r.ConstituentCount, r.IsRebalanceDay, r.RebalanceDate,
				r.TickersAdded, r.TickersRemoved, r.CompositionChangeCount, r.ReturnSampleSize,
			}, nil
		}),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy index daily records: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO index_summaries (
			run_id, aggregate_return_pct, best_date, best_return_pct,
			worst_date, worst_return_pct, total_composition_changes
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		run.RunID, summary.AggregateReturnPercent, summary.BestPerformingDate, summary.BestReturnPercent,
		summary.WorstPerformingDate, summary.WorstReturnPercent, summary.TotalCompositionChanges,
	)
	if err != nil {
		return fmt.Errorf("insert index summary: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns ErrNotFound if not exists.
func (s *IndexRunStore) GetRun(ctx context.Context, runID string) (*domain.IndexRun, error) {
	query := `
		SELECT run_id, universe_size, base_level, start_date, end_date, days, created_at
		FROM index_runs
		WHERE run_id = $1
	`

	run, err := scanIndexRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get index run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves all runs, newest first.
func (s *IndexRunStore) ListRuns(ctx context.Context) ([]*domain.IndexRun, error) {
	query := `
		SELECT run_id, universe_size, base_level, start_date, end_date, days, created_at
		FROM index_runs
		ORDER BY created_at DESC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list index runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.IndexRun
	for rows.Next() {
		run, err := scanIndexRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan index run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index run rows: %w", err)
	}
	return runs, nil
}

// GetDailyRecords retrieves daily records for a run, ordered by date ASC.
func (s *IndexRunStore) GetDailyRecords(ctx context.Context, runID string) (records []domain.DailyRecord, err error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	query := `
		SELECT trade_date, index_level, daily_return_pct, cumulative_return_pct,
			constituents, constituent_count, is_rebalance_day, rebalance_date,
			tickers_added, tickers_removed, composition_change_count, return_sample_size
		FROM index_daily_records
		WHERE run_id = $1
		ORDER BY trade_date ASC
	`

	defer observe("daily_records", time.Now(), &err)
	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get index daily records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.DailyRecord
		err := rows.Scan(
			&r.Date, &r.IndexLevel, &r.DailyReturnPercent, &r.CumulativeReturnPercent,
			&r.Constituents, &r.ConstituentCount, &r.IsRebalanceDay, &r.RebalanceDate,
			&r.TickersAdded, &r.TickersRemoved, &r.CompositionChangeCount, &r.ReturnSampleSize,
		)
		if err != nil {
			return nil, fmt.Errorf("scan index daily record row: %w", err)
		}
		r.Date = r.Date.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index daily record rows: %w", err)
	}
	return records, nil
}

// GetSummary retrieves the summary for a run. Returns ErrNotFound if not exists.
func (s *IndexRunStore) GetSummary(ctx context.Context, runID string) (*domain.SummaryRecord, error) {
	query := `
		SELECT aggregate_return_pct, best_date, best_return_pct,
			worst_date, worst_return_pct, total_composition_changes
		FROM index_summaries
		WHERE run_id = $1
	`

	var sm domain.SummaryRecord
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&sm.AggregateReturnPercent, &sm.BestPerformingDate, &sm.BestReturnPercent,
		&sm.WorstPerformingDate, &sm.WorstReturnPercent, &sm.TotalCompositionChanges,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get index summary: %w", err)
	}
	sm.BestPerformingDate = sm.BestPerformingDate.UTC()
	sm.WorstPerformingDate = sm.WorstPerformingDate.UTC()
	return &sm, nil
}

// scanIndexRun scans a single row into an IndexRun.
func scanIndexRun(row pgx.Row) (*domain.IndexRun, error) {
	var run domain.IndexRun
	err := row.Scan(
		&run.RunID, &run.UniverseSize, &run.BaseLevel,
		&run.StartDate, &run.EndDate, &run.Days, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.StartDate = run.StartDate.UTC()
	run.EndDate = run.EndDate.UTC()
	return &run, nil
}
