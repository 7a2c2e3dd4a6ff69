package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

func TestDailyPerformanceStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDailyPerformanceStore(conn)
	ctx := context.Background()

	days := []*domain.DailyPerformance{
		{RunID: "run-1", Date: day(2024, 1, 3), Candidates: 2, Entered: 1, Winners: 0, Losers: 1, BasePnL: -50, DollarPnL: -100, EquityEnd: 24900},
		{RunID: "run-1", Date: day(2024, 1, 2), Candidates: 3, Entered: 2, Winners: 2, Losers: 0, BasePnL: 120, DollarPnL: 240, EquityEnd: 25240},
		{RunID: "run-2", Date: day(2024, 1, 2), Candidates: 1},
	}
	require.NoError(t, store.InsertBulk(ctx, days))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day(2024, 1, 2), got[0].Date)
	assert.Equal(t, 3, got[0].Candidates)
	assert.Equal(t, 2, got[0].Winners)
	assert.Equal(t, 240.0, got[0].DollarPnL)
	assert.Equal(t, day(2024, 1, 3), got[1].Date)
	assert.Equal(t, -50.0, got[1].BasePnL)
}

func TestDailyPerformanceStore_Duplicates(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDailyPerformanceStore(conn)
	ctx := context.Background()

	row := &domain.DailyPerformance{RunID: "run-1", Date: day(2024, 1, 2)}
	err := store.InsertBulk(ctx, []*domain.DailyPerformance{row, row})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.InsertBulk(ctx, []*domain.DailyPerformance{row}))
	err = store.InsertBulk(ctx, []*domain.DailyPerformance{row})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestDailyPerformanceStore_UnknownRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := NewDailyPerformanceStore(conn).GetByRunID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
