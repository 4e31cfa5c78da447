package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/panel"
	"equal-weight-index/internal/storage"
)

// PriceStore is an in-memory implementation of storage.PriceStore.
type PriceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceRow // keyed by (ticker, date)
}

// NewPriceStore creates a new in-memory price store.
func NewPriceStore() *PriceStore {
	return &PriceStore{
		data: make(map[string]*domain.PriceRow),
	}
}

// priceKey generates a unique key for a price row.
func priceKey(ticker string, date time.Time) string {
	return ticker + "|" + date.Format(domain.DateLayout)
}

// InsertBulk adds multiple rows. Fails entire batch on duplicate.
func (s *PriceStore) InsertBulk(_ context.Context, rows []*domain.PriceRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))

	// First pass: check for duplicates (existing + intra-batch)
	for _, r := range rows {
		if r == nil || r.Ticker == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := priceKey(r.Ticker, r.Date)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range rows {
		s.data[priceKey(r.Ticker, r.Date)] = copyRow(r)
	}

	return nil
}

// Truncate removes every row.
func (s *PriceStore) Truncate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*domain.PriceRow)
	return nil
}

// GetByDateRange retrieves rows within [start, end] (inclusive), ordered by date, ticker.
func (s *PriceStore) GetByDateRange(_ context.Context, start, end time.Time) ([]*domain.PriceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceRow
	for _, r := range s.data {
		if !r.Date.Before(start) && !r.Date.After(end) {
			result = append(result, copyRow(r))
		}
	}

	sortRows(result)
	return result, nil
}

// GetAll retrieves every row, ordered by date, ticker.
func (s *PriceStore) GetAll(_ context.Context) ([]*domain.PriceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PriceRow, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, copyRow(r))
	}

	sortRows(result)
	return result, nil
}

// TopNByMarketCap retrieves the n largest rows by market cap for each date.
func (s *PriceStore) TopNByMarketCap(ctx context.Context, n int) ([]*domain.PriceRow, error) {
	if n <= 0 {
		return nil, storage.ErrInvalidInput
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return panel.TopN(all, n), nil
}

func copyRow(r *domain.PriceRow) *domain.PriceRow {
	rowCopy := *r
	if r.ClosePrice != nil {
		rowCopy.ClosePrice = domain.Float64Ptr(*r.ClosePrice)
	}
	return &rowCopy
}

func sortRows(rows []*domain.PriceRow) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Ticker < rows[j].Ticker
	})
}

var _ storage.PriceStore = (*PriceStore)(nil)
