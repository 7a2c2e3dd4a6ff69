package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

func testSummary(runID string) *domain.RunSummary {
	return &domain.RunSummary{
		RunID:                runID,
		StrategyID:           "orb_atr10",
		Compounding:          true,
		StartDate:            day(2024, 1, 2),
		EndDate:              day(2024, 12, 31),
		Candidates:           400,
		Entered:              250,
		NoEntry:              140,
		Skipped:              10,
		Wins:                 100,
		Losses:               150,
		WinRate:              0.4,
		Tickers:              120,
		TickerWinRate:        0.55,
		PnLPctMean:           0.002,
		PnLPctMedian:         -0.001,
		PnLPctP10:            -0.01,
		PnLPctP90:            0.03,
		PnLPctStddev:         0.015,
		TotalDollarPnL:       12500,
		TotalBasePnL:         6250,
		ProfitFactor:         1.4,
		FinalEquity:          37500,
		MaxDrawdown:          4000,
		MaxDrawdownPct:       0.12,
		MaxConsecutiveLosses: 9,
		SkipReasons:          map[string]int{"NO_BARS": 6, "ZERO_RISK": 4},
	}
}

func TestRunSummaryStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunSummaryStore(conn)
	ctx := context.Background()

	want := testSummary("run-1")
	require.NoError(t, store.Insert(ctx, want))

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRunSummaryStore_Duplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunSummaryStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSummary("run-1")))
	err := store.Insert(ctx, testSummary("run-1"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunSummaryStore_NotFound(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewRunSummaryStore(conn).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunSummaryStore_GetAll(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunSummaryStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSummary("run-b")))
	require.NoError(t, store.Insert(ctx, testSummary("run-a")))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "run-a", all[0].RunID)
	assert.Equal(t, "run-b", all[1].RunID)
}
