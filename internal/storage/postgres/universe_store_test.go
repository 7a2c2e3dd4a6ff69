package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

func testCandidate(d int, ticker string, rvol float64) *domain.Candidate {
	return &domain.Candidate{
		TradeDate:   day(2024, 1, d),
		Ticker:      ticker,
		Direction:   domain.DirectionLong,
		RVOL:        rvol,
		OROpen:      10.0,
		ORHigh:      10.2,
		ORLow:       9.9,
		ORClose:     10.1,
		ORVolume:    150000,
		ATR14:       0.5,
		AvgVolume14: 1200000,
		PrevClose:   9.95,
		Bars:        []byte(`[{"t":"2024-01-02T09:30:00-05:00","o":10,"h":10.2,"l":9.9,"c":10.1,"v":150000}]`),
	}
}

func TestUniverseStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewUniverseStore(pool)

	want := testCandidate(2, "AAPL", 2.5)
	require.NoError(t, store.InsertBulk(ctx, []*domain.Candidate{want}))

	got, err := store.Get(ctx, day(2024, 1, 2), "aapl")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestUniverseStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewUniverseStore(pool).Get(context.Background(), day(2024, 1, 2), "MSFT")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUniverseStore_DuplicateRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewUniverseStore(pool)

	err := store.InsertBulk(ctx, []*domain.Candidate{
		testCandidate(2, "AAPL", 2.5),
		testCandidate(2, "AAPL", 3.0),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByDateRange(ctx, day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUniverseStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	err := NewUniverseStore(pool).InsertBulk(context.Background(), []*domain.Candidate{{TradeDate: day(2024, 1, 2)}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestUniverseStore_GetByDateRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewUniverseStore(pool)

	require.NoError(t, store.InsertBulk(ctx, []*domain.Candidate{
		testCandidate(4, "TSLA", 1.5),
		testCandidate(2, "NVDA", 4.0),
		testCandidate(2, "AMD", 2.0),
		testCandidate(3, "AAPL", 3.0),
	}))

	got, err := store.GetByDateRange(ctx, day(2024, 1, 2), day(2024, 1, 3))
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Load order is kept within a day.
	assert.Equal(t, "NVDA", got[0].Ticker)
	assert.Equal(t, "AMD", got[1].Ticker)
	assert.Equal(t, "AAPL", got[2].Ticker)
}
