package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/storage"
)

// PriceStore implements storage.PriceStore using PostgreSQL.
type PriceStore struct {
	pool *Pool
}

// NewPriceStore creates a new PriceStore.
func NewPriceStore(pool *Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceStore = (*PriceStore)(nil)

const priceColumns = `ticker, security, trade_date, close_price, market_cap`

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *PriceStore) InsertBulk(ctx context.Context, rows []*domain.PriceRow) (err error) {
	if len(rows) == 0 {
		return nil
	}
	for _, r := range rows {
		if r == nil || r.Ticker == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}
	defer observe("insert_prices", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"stock_prices"},
		[]string{"ticker", "security", "trade_date", "close_price", "market_cap"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.Ticker, r.Security, r.Date, r.ClosePrice, r.MarketCap}, nil
		}),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy stock prices: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Truncate removes every row.
func (s *PriceStore) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE TABLE stock_prices`); err != nil {
		return fmt.Errorf("truncate stock prices: %w", err)
	}
	return nil
}

// GetByDateRange retrieves rows within [start, end] (inclusive), ordered by date, ticker.
func (s *PriceStore) GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.PriceRow, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM stock_prices
		WHERE trade_date >= $1 AND trade_date <= $2
		ORDER BY trade_date ASC, ticker ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get stock prices by date range: %w", err)
	}
	defer rows.Close()

	return scanPriceRows(rows)
}

// GetAll retrieves every row, ordered by date, ticker.
func (s *PriceStore) GetAll(ctx context.Context) ([]*domain.PriceRow, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM stock_prices
		ORDER BY trade_date ASC, ticker ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all stock prices: %w", err)
	}
	defer rows.Close()

	return scanPriceRows(rows)
}

// TopNByMarketCap ranks rows per date by market cap and keeps the first n.
func (s *PriceStore) TopNByMarketCap(ctx context.Context, n int) (result []*domain.PriceRow, err error) {
	if n <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + priceColumns + `
		FROM (
			SELECT ` + priceColumns + `,
				ROW_NUMBER() OVER (
					PARTITION BY trade_date
					ORDER BY market_cap DESC, ticker ASC
				) AS rn
			FROM stock_prices
		) ranked
		WHERE rn <= $1
		ORDER BY trade_date ASC, rn ASC
	`

	defer observe("top_n", time.Now(), &err)
	rows, err := s.pool.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("get top %d stock prices: %w", n, err)
	}
	defer rows.Close()
	return scanPriceRows(rows)
}

// scanPriceRows scans multiple rows into a slice of PriceRow.
func scanPriceRows(rows pgx.Rows) ([]*domain.PriceRow, error) {
	var result []*domain.PriceRow

	for rows.Next() {
		var r domain.PriceRow
		if err := rows.Scan(&r.Ticker, &r.Security, &r.Date, &r.ClosePrice, &r.MarketCap); err != nil {
			return nil, fmt.Errorf("scan stock price row: %w", err)
		}
		r.Date = r.Date.UTC()
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock price rows: %w", err)
	}

	return result, nil
}
