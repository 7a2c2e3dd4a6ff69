package backtest

import (
	"sort"
	"time"

	"orb-lab/internal/bars"
	"orb-lab/internal/domain"
	"orb-lab/internal/openrange"
	"orb-lab/internal/strategy"
)

// Ranked is a selected candidate with its RVOL rank within its day (1 = highest).
// Range is the opening range the candidate was filtered and ranked on; the
// engine trades its direction and the trade row reports its side and RVOL.
type Ranked struct {
	*domain.Candidate
	Range openrange.Range
	Rank  int
}

// Select applies the universe filters, then keeps the top_n candidates by RVOL
// for each trade date. Ties keep input order. The result is keyed by DateKey.
func Select(universe []*domain.Candidate, cfg Config, orb *strategy.ORB) map[string][]Ranked {
	byDay := make(map[string][]Ranked)

	for _, c := range universe {
		if c.ATR14 < cfg.MinATR || c.AvgVolume14 < cfg.MinVolume {
			continue
		}
		rng := selectionRange(c)
		if !cfg.allowsSide(rng.Direction) {
			continue
		}
		if !orb.Qualifies(rng.Direction, rng.RVOL) {
			continue
		}
		key := c.DateKey()
		byDay[key] = append(byDay[key], Ranked{Candidate: c, Range: rng})
	}

	for key, day := range byDay {
		sort.SliceStable(day, func(i, j int) bool {
			return day[i].Range.RVOL > day[j].Range.RVOL
		})
		if len(day) > cfg.TopN {
			day = day[:cfg.TopN]
		}
		for i := range day {
			day[i].Rank = i + 1
		}
		byDay[key] = day
	}

	return byDay
}

// selectionRange is the opening range a candidate is selected on. Candidates
// without upstream opening-range fields are resolved from their bars; when the
// bars cannot be used the stored direction and RVOL are kept and the engine
// records the data problem as a skipped row.
func selectionRange(c *domain.Candidate) openrange.Range {
	if c.HasOpeningRange() {
		return openrange.FromCandidate(c)
	}
	decoded, err := bars.Decode(c.Bars)
	if err != nil {
		return openrange.FromCandidate(c)
	}
	rng, err := openrange.FromBars(decoded, c.AvgVolume14)
	if err != nil {
		return openrange.FromCandidate(c)
	}
	return rng
}

// TradingDays returns the distinct trade dates of the universe in ascending order.
func TradingDays(universe []*domain.Candidate) []time.Time {
	seen := make(map[string]struct{})
	var days []time.Time
	for _, c := range universe {
		key := c.DateKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, domain.NormalizeDate(c.TradeDate))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
