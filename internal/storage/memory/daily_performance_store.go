package memory

import (
	"context"
	"sort"
	"sync"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

// DailyPerformanceStore is an in-memory implementation of storage.DailyPerformanceStore.
type DailyPerformanceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DailyPerformance // keyed by run_id, date
}

// NewDailyPerformanceStore creates a new in-memory daily performance store.
func NewDailyPerformanceStore() *DailyPerformanceStore {
	return &DailyPerformanceStore{
		data: make(map[string]*domain.DailyPerformance),
	}
}

// InsertBulk adds multiple rows atomically. Fails entire batch on duplicate (run_id, date).
func (s *DailyPerformanceStore) InsertBulk(_ context.Context, rows []*domain.DailyPerformance) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := r.RunID + "|" + r.Date.Format(domain.DateLayout)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		copy := *r
		s.data[r.RunID+"|"+r.Date.Format(domain.DateLayout)] = &copy
	}
	return nil
}

// GetByRunID retrieves all rows of a run, ordered by date ASC.
func (s *DailyPerformanceStore) GetByRunID(_ context.Context, runID string) ([]*domain.DailyPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyPerformance
	for _, r := range s.data {
		if r.RunID == runID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

var _ storage.DailyPerformanceStore = (*DailyPerformanceStore)(nil)
