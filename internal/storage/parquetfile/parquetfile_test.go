package parquetfile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func candidate(d time.Time, ticker string, rvol float64) *domain.Candidate {
	return &domain.Candidate{
		TradeDate:   d,
		Ticker:      ticker,
		Direction:   domain.DirectionShort,
		RVOL:        rvol,
		OROpen:      20.0,
		ORHigh:      20.1,
		ORLow:       19.5,
		ORClose:     19.6,
		ORVolume:    80000,
		ATR14:       1.2,
		AvgVolume14: 900000,
		PrevClose:   20.3,
		Bars:        []byte(`[["2024-01-02 09:30:00",20,20.1,19.5,19.6,80000]]`),
	}
}

func TestUniverse_WriteAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.parquet")

	in := []*domain.Candidate{
		candidate(date(2024, 1, 3), "BBB", 1.2),
		candidate(date(2024, 1, 2), "AAA", 3.1),
		candidate(date(2024, 1, 2), "CCC", 2.4),
	}
	require.NoError(t, WriteUniverse(path, in))

	r, err := OpenUniverse(path)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, in, r.All())

	got, err := r.GetByDateRange(context.Background(), date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "AAA", got[0].Ticker)
	assert.Equal(t, "CCC", got[1].Ticker)
	assert.Equal(t, "BBB", got[2].Ticker)

	got, err = r.GetByDateRange(context.Background(), date(2024, 1, 3), date(2024, 1, 3))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "BBB", got[0].Ticker)
}

func TestUniverse_ReturnsCopies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.parquet")
	require.NoError(t, WriteUniverse(path, []*domain.Candidate{candidate(date(2024, 1, 2), "AAA", 1)}))

	r, err := OpenUniverse(path)
	require.NoError(t, err)

	first, err := r.GetByDateRange(context.Background(), date(2024, 1, 2), date(2024, 1, 2))
	require.NoError(t, err)
	first[0].Ticker = "ZZZ"
	first[0].Bars[0] = 'x'

	second, err := r.GetByDateRange(context.Background(), date(2024, 1, 2), date(2024, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, "AAA", second[0].Ticker)
	assert.Equal(t, byte('['), second[0].Bars[0])
}

func TestUniverse_RejectsBadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.parquet")
	bad := candidate(date(2024, 1, 2), "AAA", 1)
	bad.Direction = 5
	require.NoError(t, WriteUniverse(path, []*domain.Candidate{bad}))

	_, err := OpenUniverse(path)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestUniverse_MissingFile(t *testing.T) {
	_, err := OpenUniverse(filepath.Join(t.TempDir(), "nope.parquet"))
	assert.Error(t, err)
}

func TestTrades_RoundTripKeepsNullTimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), TradesFile)

	entry := time.Date(2024, 1, 2, 14, 35, 0, 0, time.UTC)
	exit := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)
	trades := []*domain.SimulatedTrade{
		{
			TradeID: "t1", RunID: "run", TradeDate: date(2024, 1, 2), Ticker: "AAA",
			Side: domain.SideLong, RVOLRank: 1, Outcome: domain.OutcomeEntered, Entered: true,
			EntryPrice: 10, EntryTime: &entry, ExitPrice: 10.5, ExitTime: &exit,
			ExitReason: domain.ExitReasonEOD, PnLPct: 5, DollarPnL: 1250, BaseDollarPnL: 1250,
			PositionSize: 25000, Shares: 2500, EquityBefore: 25000,
		},
		{
			TradeID: "t2", RunID: "run", TradeDate: date(2024, 1, 2), Ticker: "BBB",
			Side: domain.SideShort, RVOLRank: 2, Outcome: domain.OutcomeNoEntry,
			ExitReason: domain.ExitReasonNoEntry,
		},
	}
	require.NoError(t, WriteTrades(path, trades))

	got, err := ReadTrades(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, trades[0], got[0])
	assert.Nil(t, got[1].EntryTime)
	assert.Nil(t, got[1].ExitTime)
	assert.Equal(t, domain.OutcomeNoEntry, got[1].Outcome)
}

func TestEquityCurve_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), EquityCurveFile)

	points := []*domain.EquityCurvePoint{
		{RunID: "run", Date: date(2023, 12, 29), Equity: 30000, DayPnL: 100},
		{RunID: "run", Date: date(2024, 1, 2), Equity: 1, DayPnL: -26000, Clamped: true},
	}
	require.NoError(t, WriteEquityCurve(path, points))

	got, err := ReadEquityCurve(path)
	require.NoError(t, err)
	assert.Equal(t, points, got)
}

func TestWriteDailyAndYearly(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteDaily(filepath.Join(dir, DailyFile), []*domain.DailyPerformance{
		{RunID: "run", Date: date(2024, 1, 2), Candidates: 3, Entered: 2, Winners: 1, Losers: 1},
	}))
	require.NoError(t, WriteYearly(filepath.Join(dir, YearlyFile), []*domain.YearlyResult{
		{RunID: "run", Year: 2024, StartEquity: 25000, EndEquity: 26000, YearPnL: 1000, YearReturnPct: 4},
	}))

	assert.FileExists(t, filepath.Join(dir, DailyFile))
	assert.FileExists(t, filepath.Join(dir, YearlyFile))
}

func TestDateConversion(t *testing.T) {
	for _, d := range []time.Time{date(1970, 1, 1), date(2000, 2, 29), date(2024, 12, 31)} {
		assert.Equal(t, d, fromDays(toDays(d)))
	}
	assert.Equal(t, int32(0), toDays(time.Date(1970, 1, 1, 23, 59, 0, 0, time.UTC)))
}
