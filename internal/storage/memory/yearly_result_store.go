package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

// YearlyResultStore is an in-memory implementation of storage.YearlyResultStore.
type YearlyResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.YearlyResult // keyed by run_id, year
}

// NewYearlyResultStore creates a new in-memory yearly result store.
func NewYearlyResultStore() *YearlyResultStore {
	return &YearlyResultStore{
		data: make(map[string]*domain.YearlyResult),
	}
}

// InsertBulk adds multiple rows atomically. Fails entire batch on duplicate (run_id, year).
func (s *YearlyResultStore) InsertBulk(_ context.Context, rows []*domain.YearlyResult) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.Year == 0 {
			return storage.ErrInvalidInput
		}
		key := fmt.Sprintf("%s|%d", r.RunID, r.Year)
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
		s.data[fmt.Sprintf("%s|%d", r.RunID, r.Year)] = &copy
	}
	return nil
}

// GetByRunID retrieves all rows of a run, ordered by year ASC.
func (s *YearlyResultStore) GetByRunID(_ context.Context, runID string) ([]*domain.YearlyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.YearlyResult
	for _, r := range s.data {
		if r.RunID == runID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Year < result[j].Year
	})
	return result, nil
}

var _ storage.YearlyResultStore = (*YearlyResultStore)(nil)
