package panel

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"equal-weight-index/internal/domain"
)

// DefaultConcurrency bounds the number of dates built in parallel.
const DefaultConcurrency = 8

// GroupOptions configures Group.
type GroupOptions struct {
	Concurrency int // 0 means DefaultConcurrency
}

// Group partitions rows by date and returns one snapshot per distinct
// date in ascending order. A row with a nil close contributes its ticker
// to the constituent set but no price. When a (ticker, date) pair occurs
// more than once the later row wins.
func Group(ctx context.Context, rows []*domain.PriceRow, opts GroupOptions) ([]*domain.Snapshot, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	// Partitioning is sequential so input order decides duplicates.
	byDate := make(map[string][]*domain.PriceRow)
	for i, r := range rows {
		if r == nil {
			return nil, fmt.Errorf("row %d: nil row", i)
		}
		if r.Ticker == "" {
			return nil, fmt.Errorf("row %d: empty ticker", i)
		}
		if r.Date.IsZero() {
			return nil, fmt.Errorf("row %d (%s): missing date", i, r.Ticker)
		}
		key := r.DateKey()
		byDate[key] = append(byDate[key], r)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	snapshots := make([]*domain.Snapshot, len(dates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, d := range dates {
		i, d := i, d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snapshots[i] = buildSnapshot(byDate[d])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("group snapshots: %w", err)
	}

	return snapshots, nil
}

// buildSnapshot folds the rows of one date into a snapshot.
func buildSnapshot(rows []*domain.PriceRow) *domain.Snapshot {
	s := &domain.Snapshot{
		Date:    rows[0].Date,
		Tickers: make(domain.TickerSet, len(rows)),
		Prices:  make(map[string]float64, len(rows)),
	}
	for _, r := range rows {
		s.Tickers[r.Ticker] = struct{}{}
		if r.ClosePrice == nil {
			delete(s.Prices, r.Ticker)
			continue
		}
		s.Prices[r.Ticker] = *r.ClosePrice
	}
	return s
}
