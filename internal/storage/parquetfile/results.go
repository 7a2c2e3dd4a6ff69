package parquetfile

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"orb-lab/internal/domain"
)

// Output file names inside a run's output directory.
const (
	TradesFile      = "trades.parquet"
	DailyFile       = "daily_performance.parquet"
	EquityCurveFile = "equity_curve.parquet"
	YearlyFile      = "yearly_results.parquet"
)

// TradeRow is the on-disk layout of one simulated trade.
type TradeRow struct {
	TradeID       string  `parquet:"trade_id"`
	RunID         string  `parquet:"run_id"`
	TradeDate     int32   `parquet:"trade_date,date"`
	Ticker        string  `parquet:"ticker"`
	Side          string  `parquet:"side"`
	RVOL          float64 `parquet:"rvol"`
	RVOLRank      int32   `parquet:"rvol_rank"`
	EntryLevel    float64 `parquet:"entry_level"`
	StopLevel     float64 `parquet:"stop_level"`
	ATR14         float64 `parquet:"atr_14"`
	AvgVolume14   float64 `parquet:"avg_volume_14"`
	PrevClose     float64 `parquet:"prev_close"`
	Outcome       string  `parquet:"outcome"`
	SkipReason    string  `parquet:"skip_reason"`
	Entered       bool    `parquet:"entered"`
	EntryPrice    float64 `parquet:"entry_price"`
	EntryTimeMs   *int64  `parquet:"entry_time_ms,optional"`
	ExitPrice     float64 `parquet:"exit_price"`
	ExitTimeMs    *int64  `parquet:"exit_time_ms,optional"`
	ExitReason    string  `parquet:"exit_reason"`
	PnLPct        float64 `parquet:"pnl_pct"`
	DollarPnL     float64 `parquet:"dollar_pnl"`
	BaseDollarPnL float64 `parquet:"base_dollar_pnl"`
	PositionSize  float64 `parquet:"position_size"`
	Shares        float64 `parquet:"shares"`
	EquityBefore  float64 `parquet:"equity_before"`
}

// DailyRow is the on-disk layout of one trading day.
type DailyRow struct {
	RunID      string  `parquet:"run_id"`
	Date       int32   `parquet:"date,date"`
	Candidates int32   `parquet:"candidates"`
	Entered    int32   `parquet:"entered"`
	Winners    int32   `parquet:"winners"`
	Losers     int32   `parquet:"losers"`
	BasePnL    float64 `parquet:"base_pnl"`
	DollarPnL  float64 `parquet:"dollar_pnl"`
	EquityEnd  float64 `parquet:"equity_end"`
}

// EquityRow is the on-disk layout of one equity curve point.
type EquityRow struct {
	RunID   string  `parquet:"run_id"`
	Date    int32   `parquet:"date,date"`
	Equity  float64 `parquet:"equity"`
	DayPnL  float64 `parquet:"day_pnl"`
	Clamped bool    `parquet:"clamped"`
}

// YearlyRow is the on-disk layout of one year of compounding.
type YearlyRow struct {
	RunID         string  `parquet:"run_id"`
	Year          int32   `parquet:"year"`
	StartEquity   float64 `parquet:"start_equity"`
	EndEquity     float64 `parquet:"end_equity"`
	YearPnL       float64 `parquet:"year_pnl"`
	YearReturnPct float64 `parquet:"year_return_pct"`
	Trades        int32   `parquet:"trades"`
	ClampedDays   int32   `parquet:"clamped_days"`
}

// WriteTrades writes simulated trades to path.
func WriteTrades(path string, trades []*domain.SimulatedTrade) error {
	rows := make([]TradeRow, len(trades))
	for i, t := range trades {
		rows[i] = TradeRow{
			TradeID:       t.TradeID,
			RunID:         t.RunID,
			TradeDate:     toDays(t.TradeDate),
			Ticker:        t.Ticker,
			Side:          t.Side,
			RVOL:          t.RVOL,
			RVOLRank:      int32(t.RVOLRank),
			EntryLevel:    t.EntryLevel,
			StopLevel:     t.StopLevel,
			ATR14:         t.ATR14,
			AvgVolume14:   t.AvgVolume14,
			PrevClose:     t.PrevClose,
			Outcome:       t.Outcome,
			SkipReason:    t.SkipReason,
			Entered:       t.Entered,
			EntryPrice:    t.EntryPrice,
			EntryTimeMs:   toMillis(t.EntryTime),
			ExitPrice:     t.ExitPrice,
			ExitTimeMs:    toMillis(t.ExitTime),
			ExitReason:    t.ExitReason,
			PnLPct:        t.PnLPct,
			DollarPnL:     t.DollarPnL,
			BaseDollarPnL: t.BaseDollarPnL,
			PositionSize:  t.PositionSize,
			Shares:        t.Shares,
			EquityBefore:  t.EquityBefore,
		}
	}
	return write(path, rows)
}

// ReadTrades reads a trades file written by WriteTrades.
func ReadTrades(path string) ([]*domain.SimulatedTrade, error) {
	rows, err := parquet.ReadFile[TradeRow](path)
	if err != nil {
		return nil, fmt.Errorf("read trades file %s: %w", path, err)
	}

	trades := make([]*domain.SimulatedTrade, len(rows))
	for i := range rows {
		r := &rows[i]
		trades[i] = &domain.SimulatedTrade{
			TradeID:       r.TradeID,
			RunID:         r.RunID,
			TradeDate:     fromDays(r.TradeDate),
			Ticker:        r.Ticker,
			Side:          r.Side,
			RVOL:          r.RVOL,
			RVOLRank:      int(r.RVOLRank),
			EntryLevel:    r.EntryLevel,
			StopLevel:     r.StopLevel,
			ATR14:         r.ATR14,
			AvgVolume14:   r.AvgVolume14,
			PrevClose:     r.PrevClose,
			Outcome:       r.Outcome,
			SkipReason:    r.SkipReason,
			Entered:       r.Entered,
			EntryPrice:    r.EntryPrice,
			EntryTime:     fromMillis(r.EntryTimeMs),
			ExitPrice:     r.ExitPrice,
			ExitTime:      fromMillis(r.ExitTimeMs),
			ExitReason:    r.ExitReason,
			PnLPct:        r.PnLPct,
			DollarPnL:     r.DollarPnL,
			BaseDollarPnL: r.BaseDollarPnL,
			PositionSize:  r.PositionSize,
			Shares:        r.Shares,
			EquityBefore:  r.EquityBefore,
		}
	}
	return trades, nil
}

// WriteDaily writes daily performance rows to path.
func WriteDaily(path string, days []*domain.DailyPerformance) error {
	rows := make([]DailyRow, len(days))
	for i, d := range days {
		rows[i] = DailyRow{
			RunID:      d.RunID,
			Date:       toDays(d.Date),
			Candidates: int32(d.Candidates),
			Entered:    int32(d.Entered),
			Winners:    int32(d.Winners),
			Losers:     int32(d.Losers),
			BasePnL:    d.BasePnL,
			DollarPnL:  d.DollarPnL,
			EquityEnd:  d.EquityEnd,
		}
	}
	return write(path, rows)
}

// WriteEquityCurve writes equity curve points to path.
func WriteEquityCurve(path string, points []*domain.EquityCurvePoint) error {
	rows := make([]EquityRow, len(points))
	for i, p := range points {
		rows[i] = EquityRow{
			RunID:   p.RunID,
			Date:    toDays(p.Date),
			Equity:  p.Equity,
			DayPnL:  p.DayPnL,
			Clamped: p.Clamped,
		}
	}
	return write(path, rows)
}

// ReadEquityCurve reads an equity curve file written by WriteEquityCurve.
func ReadEquityCurve(path string) ([]*domain.EquityCurvePoint, error) {
	rows, err := parquet.ReadFile[EquityRow](path)
	if err != nil {
		return nil, fmt.Errorf("read equity curve file %s: %w", path, err)
	}

	points := make([]*domain.EquityCurvePoint, len(rows))
	for i, r := range rows {
		points[i] = &domain.EquityCurvePoint{
			RunID:   r.RunID,
			Date:    fromDays(r.Date),
			Equity:  r.Equity,
			DayPnL:  r.DayPnL,
			Clamped: r.Clamped,
		}
	}
	return points, nil
}

// WriteYearly writes yearly results to path.
func WriteYearly(path string, years []*domain.YearlyResult) error {
	rows := make([]YearlyRow, len(years))
	for i, y := range years {
		rows[i] = YearlyRow{
			RunID:         y.RunID,
			Year:          int32(y.Year),
			StartEquity:   y.StartEquity,
			EndEquity:     y.EndEquity,
			YearPnL:       y.YearPnL,
			YearReturnPct: y.YearReturnPct,
			Trades:        int32(y.Trades),
			ClampedDays:   int32(y.ClampedDays),
		}
	}
	return write(path, rows)
}

func write[T any](path string, rows []T) error {
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
