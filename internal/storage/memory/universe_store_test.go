package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestUniverseStore_InsertAndRange(t *testing.T) {
	store := NewUniverseStore()
	ctx := context.Background()

	rows := []*domain.Candidate{
		{TradeDate: date(2024, 1, 3), Ticker: "MSFT", RVOL: 2},
		{TradeDate: date(2024, 1, 2), Ticker: "TSLA", RVOL: 1},
		{TradeDate: date(2024, 1, 2), Ticker: "AAPL", RVOL: 3, Bars: []byte("[]")},
		{TradeDate: date(2024, 1, 5), Ticker: "NVDA", RVOL: 4},
	}
	if err := store.InsertBulk(ctx, rows); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByDateRange(ctx, date(2024, 1, 2), date(2024, 1, 3))
	if err != nil {
		t.Fatalf("GetByDateRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	want := []string{"TSLA", "AAPL", "MSFT"}
	for i, c := range got {
		if c.Ticker != want[i] {
			t.Errorf("row %d: got %s, want %s", i, c.Ticker, want[i])
		}
	}

	// returned rows are copies
	got[1].Bars[0] = 'x'
	again, err := store.Get(ctx, date(2024, 1, 2), "aapl")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(again.Bars) != "[]" {
		t.Errorf("stored payload was mutated: %q", again.Bars)
	}
}

func TestUniverseStore_Errors(t *testing.T) {
	store := NewUniverseStore()
	ctx := context.Background()

	c := &domain.Candidate{TradeDate: date(2024, 1, 2), Ticker: "AAPL"}
	if err := store.InsertBulk(ctx, []*domain.Candidate{c, c}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}
	if err := store.InsertBulk(ctx, []*domain.Candidate{c}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, []*domain.Candidate{c}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if err := store.InsertBulk(ctx, []*domain.Candidate{{Ticker: "X"}}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.Get(ctx, date(2024, 1, 9), "AAPL"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
