package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"orb-lab/internal/domain"
)

// money formats a dollar amount with cents.
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// price formats a price level.
func price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}

func timestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// RenderTradesCSV renders simulated trades as CSV string.
func RenderTradesCSV(trades []*domain.SimulatedTrade) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade_id,run_id,trade_date,ticker,side,rvol,rvol_rank,entry_level,stop_level,")
	sb.WriteString("atr_14,avg_volume_14,prev_close,outcome,skip_reason,entered,entry_price,entry_time,")
	sb.WriteString("exit_price,exit_time,exit_reason,pnl_pct,dollar_pnl,base_dollar_pnl,position_size,shares,equity_before\n")

	// Rows
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%.4f,%d,%s,%s,%.4f,%.0f,%s,%s,%s,%t,%s,%s,%s,%s,%s,%.6f,%s,%s,%s,%.4f,%s\n",
			t.TradeID,
			t.RunID,
			t.TradeDate.Format(domain.DateLayout),
			t.Ticker,
			t.Side,
			t.RVOL,
			t.RVOLRank,
			price(t.EntryLevel),
			price(t.StopLevel),
			t.ATR14,
			t.AvgVolume14,
			price(t.PrevClose),
			t.Outcome,
			t.SkipReason,
			t.Entered,
			price(t.EntryPrice),
			timestamp(t.EntryTime),
			price(t.ExitPrice),
			timestamp(t.ExitTime),
			t.ExitReason,
			t.PnLPct,
			money(t.DollarPnL),
			money(t.BaseDollarPnL),
			money(t.PositionSize),
			t.Shares,
			money(t.EquityBefore),
		))
	}

	return sb.String()
}

// RenderDailyCSV renders daily performance rows as CSV string.
func RenderDailyCSV(days []*domain.DailyPerformance) string {
	var sb strings.Builder

	sb.WriteString("run_id,date,candidates,entered,winners,losers,base_pnl,dollar_pnl,equity_end\n")
	for _, d := range days {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%d,%d,%s,%s,%s\n",
			d.RunID,
			d.Date.Format(domain.DateLayout),
			d.Candidates,
			d.Entered,
			d.Winners,
			d.Losers,
			money(d.BasePnL),
			money(d.DollarPnL),
			money(d.EquityEnd),
		))
	}

	return sb.String()
}

// RenderEquityCSV renders the equity curve as CSV string.
func RenderEquityCSV(points []*domain.EquityCurvePoint) string {
	var sb strings.Builder

	sb.WriteString("run_id,date,equity,day_pnl,clamped\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%t\n",
			p.RunID,
			p.Date.Format(domain.DateLayout),
			money(p.Equity),
			money(p.DayPnL),
			p.Clamped,
		))
	}

	return sb.String()
}

// RenderYearlyCSV renders yearly results as CSV string.
func RenderYearlyCSV(years []*domain.YearlyResult) string {
	var sb strings.Builder

	sb.WriteString("run_id,year,start_equity,end_equity,year_pnl,year_return_pct,trades,clamped_days\n")
	for _, y := range years {
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%s,%s,%.4f,%d,%d\n",
			y.RunID,
			y.Year,
			money(y.StartEquity),
			money(y.EndEquity),
			money(y.YearPnL),
			y.YearReturnPct,
			y.Trades,
			y.ClampedDays,
		))
	}

	return sb.String()
}

// RenderSummaryCSV renders run summaries as CSV string.
func RenderSummaryCSV(summaries []*domain.RunSummary) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,strategy_id,compounding,candidates,entered,no_entry,skipped,wins,losses,win_rate,")
	sb.WriteString("tickers,ticker_win_rate,pnl_pct_mean,pnl_pct_median,pnl_pct_p10,pnl_pct_p90,")
	sb.WriteString("total_dollar_pnl,total_base_pnl,profit_factor,final_equity,")
	sb.WriteString("max_drawdown,max_drawdown_pct,max_consecutive_losses,skip_reasons\n")

	for _, s := range summaries {
		sb.WriteString(fmt.Sprintf("%s,%s,%t,%d,%d,%d,%d,%d,%d,%.6f,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%s,%s,%.4f,%s,%s,%.4f,%d,%s\n",
			s.RunID,
			s.StrategyID,
			s.Compounding,
			s.Candidates,
			s.Entered,
			s.NoEntry,
			s.Skipped,
			s.Wins,
			s.Losses,
			s.WinRate,
			s.Tickers,
			s.TickerWinRate,
			s.PnLPctMean,
			s.PnLPctMedian,
			s.PnLPctP10,
			s.PnLPctP90,
			money(s.TotalDollarPnL),
			money(s.TotalBasePnL),
			s.ProfitFactor,
			money(s.FinalEquity),
			money(s.MaxDrawdown),
			s.MaxDrawdownPct,
			s.MaxConsecutiveLosses,
			formatSkipReasons(s.SkipReasons),
		))
	}

	return sb.String()
}

// formatSkipReasons renders reason counts as "A=1;B=2" sorted by reason.
func formatSkipReasons(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, ";")
}
