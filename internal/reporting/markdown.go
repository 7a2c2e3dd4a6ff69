package reporting

import (
	"fmt"
	"strings"
	"time"

	"orb-lab/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	s := r.Summary

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s` | Strategy: %s | Mode: %s\n\n", s.RunID, s.StrategyID, mode(s)))
	if !s.StartDate.IsZero() {
		sb.WriteString(fmt.Sprintf("Period: %s to %s\n\n",
			s.StartDate.Format(domain.DateLayout), s.EndDate.Format(domain.DateLayout)))
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Candidates | %d |\n", s.Candidates))
	sb.WriteString(fmt.Sprintf("| Entered | %d |\n", s.Entered))
	sb.WriteString(fmt.Sprintf("| No Entry | %d |\n", s.NoEntry))
	sb.WriteString(fmt.Sprintf("| Skipped | %d |\n", s.Skipped))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", s.WinRate*100))
	sb.WriteString(fmt.Sprintf("| Ticker Win Rate | %.2f%% (%d tickers) |\n", s.TickerWinRate*100, s.Tickers))
	sb.WriteString(fmt.Sprintf("| PnL %% Mean / Median | %.4f / %.4f |\n", s.PnLPctMean, s.PnLPctMedian))
	sb.WriteString(fmt.Sprintf("| PnL %% P10 / P90 | %.4f / %.4f |\n", s.PnLPctP10, s.PnLPctP90))
	sb.WriteString(fmt.Sprintf("| Dollar PnL | %s |\n", money(s.TotalDollarPnL)))
	sb.WriteString(fmt.Sprintf("| Base Dollar PnL | %s |\n", money(s.TotalBasePnL)))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %.2f |\n", s.ProfitFactor))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %s (%.2f%%) |\n", money(s.MaxDrawdown), s.MaxDrawdownPct))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", s.MaxConsecutiveLosses))
	if s.Compounding {
		sb.WriteString(fmt.Sprintf("| Final Equity | %s |\n", money(s.FinalEquity)))
	}
	sb.WriteString("\n")

	if len(s.SkipReasons) > 0 {
		sb.WriteString("### Skips\n\n")
		sb.WriteString(fmt.Sprintf("%s\n\n", strings.ReplaceAll(formatSkipReasons(s.SkipReasons), ";", ", ")))
	}

	// Yearly
	if len(r.Yearly) > 0 {
		sb.WriteString("## Yearly Results\n\n")
		sb.WriteString("| Year | Start | End | PnL | Return | Trades | Clamped Days |\n")
		sb.WriteString("|------|-------|-----|-----|--------|--------|--------------|\n")
		for _, y := range r.Yearly {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %.2f%% | %d | %d |\n",
				y.Year, money(y.StartEquity), money(y.EndEquity), money(y.YearPnL),
				y.YearReturnPct, y.Trades, y.ClampedDays))
		}
		sb.WriteString("\n")
	}

	// Exit reasons
	if len(r.ExitReasons) > 0 {
		sb.WriteString("## Exits\n\n")
		sb.WriteString("| Reason | Trades | Mean PnL % |\n")
		sb.WriteString("|--------|--------|------------|\n")
		for _, e := range r.ExitReasons {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f |\n", e.Reason, e.Trades, e.MeanPnLPct))
		}
		sb.WriteString("\n")
	}

	// Rank breakdown
	if len(r.RankBreakdown) > 0 {
		sb.WriteString("## By RVOL Rank\n\n")
		sb.WriteString("| Rank | Trades | Win Rate | Dollar PnL |\n")
		sb.WriteString("|------|--------|----------|------------|\n")
		for _, row := range r.RankBreakdown {
			sb.WriteString(fmt.Sprintf("| %d | %d | %.2f%% | %s |\n",
				row.Rank, row.Trades, row.WinRate*100, money(row.DollarPnL)))
		}
		sb.WriteString("\n")
	}

	writeDays(&sb, "Best Days", r.BestDays)
	writeDays(&sb, "Worst Days", r.WorstDays)

	if dq := r.DataQuality; dq != nil {
		sb.WriteString("## Data Quality\n\n")
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, c := range dq.Checks {
			status := "PASS"
			if !c.Pass {
				status = "FAIL"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.Name, c.Threshold, c.Actual, status))
		}
		sb.WriteString("\n")
		for _, e := range dq.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		if len(dq.IntegrityErrors) > 0 {
			sb.WriteString("\n")
		}
	}

	if rp := r.Reproducibility; rp != nil {
		sb.WriteString("## Reproducibility\n\n")
		sb.WriteString(fmt.Sprintf("- Generator: %s\n", rp.GeneratorVersion))
		sb.WriteString(fmt.Sprintf("- Data version: %s\n", rp.DataVersion))
		sb.WriteString(fmt.Sprintf("- Result version: %s\n", rp.ResultVersion))
		sb.WriteString(fmt.Sprintf("- Commit: %s\n", rp.CommitHash))
		if rp.ReplayCommand != "" {
			sb.WriteString(fmt.Sprintf("- Replay: `%s`\n", rp.ReplayCommand))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeDays(sb *strings.Builder, title string, days []*domain.DailyPerformance) {
	if len(days) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	sb.WriteString("| Date | Entered | W/L | Dollar PnL |\n")
	sb.WriteString("|------|---------|-----|------------|\n")
	for _, d := range days {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d/%d | %s |\n",
			d.Date.Format(domain.DateLayout), d.Entered, d.Winners, d.Losers, money(d.DollarPnL)))
	}
	sb.WriteString("\n")
}

func mode(s *domain.RunSummary) string {
	if s.Compounding {
		return "compounding"
	}
	return "fixed"
}
