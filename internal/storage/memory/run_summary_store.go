package memory

import (
	"context"
	"sort"
	"sync"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

// RunSummaryStore is an in-memory implementation of storage.RunSummaryStore.
type RunSummaryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunSummary // keyed by run_id
}

// NewRunSummaryStore creates a new in-memory run summary store.
func NewRunSummaryStore() *RunSummaryStore {
	return &RunSummaryStore{
		data: make(map[string]*domain.RunSummary),
	}
}

// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
func (s *RunSummaryStore) Insert(_ context.Context, r *domain.RunSummary) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = copySummary(r)
	return nil
}

// GetByID retrieves a summary by run ID. Returns ErrNotFound if not exists.
func (s *RunSummaryStore) GetByID(_ context.Context, runID string) (*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySummary(r), nil
}

// GetAll retrieves all summaries ordered by run_id.
func (s *RunSummaryStore) GetAll(_ context.Context) ([]*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RunSummary, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, copySummary(r))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

func copySummary(r *domain.RunSummary) *domain.RunSummary {
	cp := *r
	cp.SkipReasons = make(map[string]int, len(r.SkipReasons))
	for k, v := range r.SkipReasons {
		cp.SkipReasons[k] = v
	}
	return &cp
}

var _ storage.RunSummaryStore = (*RunSummaryStore)(nil)
