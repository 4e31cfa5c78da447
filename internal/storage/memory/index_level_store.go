package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/storage"
)

// IndexLevelStore is an in-memory implementation of storage.IndexLevelStore.
type IndexLevelStore struct {
	mu   sync.RWMutex
	data map[string]*domain.IndexLevelPoint // keyed by (run_id, date)
}

// NewIndexLevelStore creates a new in-memory index level store.
func NewIndexLevelStore() *IndexLevelStore {
	return &IndexLevelStore{
		data: make(map[string]*domain.IndexLevelPoint),
	}
}

func levelKey(runID string, date time.Time) string {
	return runID + "|" + date.Format(domain.DateLayout)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *IndexLevelStore) InsertBulk(_ context.Context, points []*domain.IndexLevelPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.RunID == "" {
			return storage.ErrInvalidInput
		}
		key := levelKey(p.RunID, p.Date)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		s.data[levelKey(p.RunID, p.Date)] = &pointCopy
	}
	return nil
}

// GetByRun retrieves all points for a run, ordered by date ASC.
func (s *IndexLevelStore) GetByRun(_ context.Context, runID string) ([]*domain.IndexLevelPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.IndexLevelPoint
	for _, p := range s.data {
		if p.RunID == runID {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

var _ storage.IndexLevelStore = (*IndexLevelStore)(nil)
