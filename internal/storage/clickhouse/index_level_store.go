package clickhouse

import (
	"context"
	"fmt"
	"time"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/observability"
	"equal-weight-index/internal/storage"
)

// IndexLevelStore implements storage.IndexLevelStore using ClickHouse.
type IndexLevelStore struct {
	conn *Conn
}

// NewIndexLevelStore creates a new IndexLevelStore.
func NewIndexLevelStore(conn *Conn) *IndexLevelStore {
	return &IndexLevelStore{conn: conn}
}

// Compile-time interface check.
var _ storage.IndexLevelStore = (*IndexLevelStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, trade_date).
// MergeTree does not enforce keys, so duplicates are checked before the insert.
func (s *IndexLevelStore) InsertBulk(ctx context.Context, points []*domain.IndexLevelPoint) error {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		runID string
		date  string
	}
	seen := make(map[key]struct{}, len(points))
	runs := make(map[string]struct{})
	for _, p := range points {
		if p == nil || p.RunID == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.RunID, p.Date.Format(domain.DateLayout)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		runs[p.RunID] = struct{}{}
	}

	for runID := range runs {
		existing, err := s.existingDates(ctx, runID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, d := range existing {
			if _, clash := seen[key{runID, d}]; clash {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO index_levels (
			run_id, trade_date, level, daily_return_pct,
			cumulative_return_pct, constituent_count, is_rebalance_day
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		var rebalance uint8
		if p.IsRebalanceDay {
			rebalance = 1
		}
		err = batch.Append(
			p.RunID, p.Date, p.Level, p.DailyReturnPct,
			p.CumulativeReturnPct, uint32(p.ConstituentCount), rebalance,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_levels", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRun retrieves all points for a run, ordered by date ASC.
func (s *IndexLevelStore) GetByRun(ctx context.Context, runID string) ([]*domain.IndexLevelPoint, error) {
	query := `
		SELECT run_id, trade_date, level, daily_return_pct,
			cumulative_return_pct, constituent_count, is_rebalance_day
		FROM index_levels
		WHERE run_id = ?
		ORDER BY trade_date ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanIndexLevels(rows)
}

// existingDates returns the dates already stored for runID.
func (s *IndexLevelStore) existingDates(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT trade_date FROM index_levels WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d.Format(domain.DateLayout))
	}
	return dates, rows.Err()
}

func scanIndexLevels(rows chRows) ([]*domain.IndexLevelPoint, error) {
	var points []*domain.IndexLevelPoint

	for rows.Next() {
		var p domain.IndexLevelPoint
		var count uint32
		var rebalance uint8

		err := rows.Scan(
			&p.RunID, &p.Date, &p.Level, &p.DailyReturnPct,
			&p.CumulativeReturnPct, &count, &rebalance,
		)
		if err != nil {
			return nil, fmt.Errorf("scan index level row: %w", err)
		}

		p.Date = p.Date.UTC()
		p.ConstituentCount = int(count)
		p.IsRebalanceDay = rebalance == 1
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index level rows: %w", err)
	}

	return points, nil
}
