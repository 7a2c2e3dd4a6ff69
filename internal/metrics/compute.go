package metrics

import (
	"math"
	"sort"

	"orb-lab/internal/domain"
)

// Summarize computes run statistics from trades and, in compounding mode, the equity curve.
// capital is the fixed-mode account size used to express drawdown as a percentage.
// Trades are ordered by TradeDate ASC, RVOLRank ASC before order-dependent metrics
// (MaxDrawdown, MaxConsecutiveLosses) are computed.
func Summarize(trades []*domain.SimulatedTrade, curve []*domain.EquityCurvePoint, capital float64) *domain.RunSummary {
	s := &domain.RunSummary{
		Candidates:  len(trades),
		SkipReasons: make(map[string]int),
		Compounding: len(curve) > 0,
	}
	if len(trades) == 0 {
		return s
	}

	sorted := make([]*domain.SimulatedTrade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].TradeDate.Equal(sorted[j].TradeDate) {
			return sorted[i].TradeDate.Before(sorted[j].TradeDate)
		}
		return sorted[i].RVOLRank < sorted[j].RVOLRank
	})

	s.StartDate = sorted[0].TradeDate
	s.EndDate = sorted[len(sorted)-1].TradeDate

	entered := make([]*domain.SimulatedTrade, 0, len(sorted))
	for _, t := range sorted {
		switch t.Outcome {
		case domain.OutcomeEntered:
			entered = append(entered, t)
		case domain.OutcomeNoEntry:
			s.NoEntry++
		case domain.OutcomeSkipped:
			s.Skipped++
			s.SkipReasons[t.SkipReason]++
		}
	}
	s.Entered = len(entered)

	pnlPct := make([]float64, len(entered))
	dollars := make([]float64, len(entered))
	grossWin, grossLoss := 0.0, 0.0
	for i, t := range entered {
		if t.IsWin() {
			s.Wins++
			grossWin += t.DollarPnL
		} else {
			s.Losses++
			grossLoss -= t.DollarPnL
		}
		pnlPct[i] = t.PnLPct
		dollars[i] = t.DollarPnL
		s.TotalDollarPnL += t.DollarPnL
		s.TotalBasePnL += t.BaseDollarPnL
	}

	s.WinRate = computeWinRate(s.Wins, s.Entered)
	s.Tickers, s.TickerWinRate = computeTickerWinRate(entered)
	if grossLoss > 0 {
		s.ProfitFactor = grossWin / grossLoss
	}

	sortedPct := make([]float64, len(pnlPct))
	copy(sortedPct, pnlPct)
	sort.Float64s(sortedPct)

	s.PnLPctMean = computeMean(pnlPct)
	s.PnLPctStddev = computeStddev(pnlPct, s.PnLPctMean)
	s.PnLPctMedian = computePercentile(sortedPct, 0.50)
	s.PnLPctP10 = computePercentile(sortedPct, 0.10)
	s.PnLPctP90 = computePercentile(sortedPct, 0.90)

	s.MaxConsecutiveLosses = computeMaxConsecutiveLosses(entered)

	if s.Compounding {
		s.MaxDrawdown, s.MaxDrawdownPct = computeEquityDrawdown(curve)
		s.FinalEquity = curve[len(curve)-1].Equity
	} else {
		s.MaxDrawdown, s.MaxDrawdownPct = computeMaxDrawdown(dollars, capital)
	}

	return s
}

// computeTickerWinRate groups entered trades by ticker. A ticker is winning
// when at least one of its trades made money.
func computeTickerWinRate(trades []*domain.SimulatedTrade) (int, float64) {
	if len(trades) == 0 {
		return 0, 0
	}

	won := make(map[string]bool)
	for _, t := range trades {
		won[t.Ticker] = won[t.Ticker] || t.IsWin()
	}

	winning := 0
	for _, w := range won {
		if w {
			winning++
		}
	}
	return len(won), float64(winning) / float64(len(won))
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative dollar P&L
// of a fixed-capital account. Percentage is relative to capital + peak.
// Values must be in chronological order.
func computeMaxDrawdown(pnl []float64, capital float64) (float64, float64) {
	cumulative := 0.0
	peak := 0.0
	maxDD, maxPct := 0.0, 0.0

	for _, v := range pnl {
		cumulative += v
		if cumulative > peak {
			peak = cumulative
		}
		dd := peak - cumulative
		if dd > maxDD {
			maxDD = dd
			if base := capital + peak; base > 0 {
				maxPct = dd / base * 100
			}
		}
	}
	return maxDD, maxPct
}

// computeEquityDrawdown calculates worst peak-to-trough on the equity curve.
// The peak restarts every calendar year because equity is reset then.
func computeEquityDrawdown(curve []*domain.EquityCurvePoint) (float64, float64) {
	maxDD, maxPct := 0.0, 0.0
	peak := 0.0
	year := 0

	for _, p := range curve {
		if y := p.Date.Year(); y != year {
			year = y
			// the year opens at the equity before its first day's P&L
			peak = p.Equity - p.DayPnL
		}
		if p.Equity > peak {
			peak = p.Equity
		}
		dd := peak - p.Equity
		if dd > maxDD {
			maxDD = dd
			if peak > 0 {
				maxPct = dd / peak * 100
			}
		}
	}
	return maxDD, maxPct
}

// computeMaxConsecutiveLosses finds longest streak of dollar_pnl <= 0.
// Trades must be in chronological order.
func computeMaxConsecutiveLosses(trades []*domain.SimulatedTrade) int {
	maxStreak := 0
	currentStreak := 0

	for _, t := range trades {
		if t.IsLoss() {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
