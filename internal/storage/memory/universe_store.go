package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

// UniverseStore is an in-memory implementation of storage.UniverseStore.
type UniverseStore struct {
	mu    sync.RWMutex
	rows  []*domain.Candidate // insertion order
	index map[string]int      // keyed by trade_date|ticker
}

// NewUniverseStore creates a new in-memory universe store.
func NewUniverseStore() *UniverseStore {
	return &UniverseStore{
		index: make(map[string]int),
	}
}

func universeKey(tradeDate time.Time, ticker string) string {
	return domain.NormalizeDate(tradeDate).Format(domain.DateLayout) + "|" + strings.ToUpper(ticker)
}

// InsertBulk adds multiple candidates atomically. Fails entire batch on any duplicate.
func (s *UniverseStore) InsertBulk(_ context.Context, candidates []*domain.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c == nil || c.Ticker == "" || c.TradeDate.IsZero() {
			return storage.ErrInvalidInput
		}
		key := universeKey(c.TradeDate, c.Ticker)
		if _, exists := s.index[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, c := range candidates {
		s.index[universeKey(c.TradeDate, c.Ticker)] = len(s.rows)
		s.rows = append(s.rows, copyCandidate(c))
	}
	return nil
}

// Get retrieves one candidate. Returns ErrNotFound if not exists.
func (s *UniverseStore) Get(_ context.Context, tradeDate time.Time, ticker string) (*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, exists := s.index[universeKey(tradeDate, ticker)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyCandidate(s.rows[i]), nil
}

// GetByDateRange retrieves candidates with trade_date in [from, to], ordered by
// trade_date ASC then insertion order.
func (s *UniverseStore) GetByDateRange(_ context.Context, from, to time.Time) ([]*domain.Candidate, error) {
	from, to = domain.NormalizeDate(from), domain.NormalizeDate(to)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candidate
	for _, c := range s.rows {
		d := domain.NormalizeDate(c.TradeDate)
		if d.Before(from) || d.After(to) {
			continue
		}
		result = append(result, copyCandidate(c))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TradeDate.Before(result[j].TradeDate)
	})
	return result, nil
}

func copyCandidate(c *domain.Candidate) *domain.Candidate {
	cp := *c
	if c.Bars != nil {
		cp.Bars = append([]byte(nil), c.Bars...)
	}
	return &cp
}

var _ storage.UniverseStore = (*UniverseStore)(nil)
