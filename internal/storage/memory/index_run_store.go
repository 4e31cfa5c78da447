package memory

import (
	"context"
	"sort"
	"sync"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/storage"
)

// runEntry holds one persisted run with its children.
type runEntry struct {
	run     domain.IndexRun
	daily   []domain.DailyRecord
	summary domain.SummaryRecord
}

// IndexRunStore is an in-memory implementation of storage.IndexRunStore.
type IndexRunStore struct {
	mu   sync.RWMutex
	data map[string]*runEntry // keyed by run_id
}

// NewIndexRunStore creates a new in-memory index run store.
func NewIndexRunStore() *IndexRunStore {
	return &IndexRunStore{
		data: make(map[string]*runEntry),
	}
}

// Insert persists a run with its daily records and summary.
// Returns ErrDuplicateKey if run_id exists.
func (s *IndexRunStore) Insert(_ context.Context, run *domain.IndexRun, daily []domain.DailyRecord, summary *domain.SummaryRecord) error {
	if run == nil || run.RunID == "" || summary == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	dailyCopy := make([]domain.DailyRecord, len(daily))
	copy(dailyCopy, daily)

	s.data[run.RunID] = &runEntry{
		run:     *run,
		daily:   dailyCopy,
		summary: *summary,
	}
	return nil
}

// GetRun retrieves a run by ID. Returns ErrNotFound if not exists.
func (s *IndexRunStore) GetRun(_ context.Context, runID string) (*domain.IndexRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	runCopy := e.run
	return &runCopy, nil
}

// ListRuns retrieves all runs, newest first. Runs created at the same
// instant are ordered by run_id.
func (s *IndexRunStore) ListRuns(_ context.Context) ([]*domain.IndexRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.IndexRun, 0, len(s.data))
	for _, e := range s.data {
		runCopy := e.run
		result = append(result, &runCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

// GetDailyRecords retrieves daily records for a run, ordered by date ASC.
func (s *IndexRunStore) GetDailyRecords(_ context.Context, runID string) ([]domain.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	result := make([]domain.DailyRecord, len(e.daily))
	copy(result, e.daily)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// GetSummary retrieves the summary for a run. Returns ErrNotFound if not exists.
func (s *IndexRunStore) GetSummary(_ context.Context, runID string) (*domain.SummaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	summaryCopy := e.summary
	return &summaryCopy, nil
}

var _ storage.IndexRunStore = (*IndexRunStore)(nil)
