package reporting

import (
	"context"
	"sort"
	"time"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

// topDays is how many best and worst days a report lists.
const topDays = 5

// Generator produces reports from stored run results.
type Generator struct {
	stores storage.ResultStores
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. Trades and Summaries are required.
func NewGenerator(stores storage.ResultStores) *Generator {
	return &Generator{
		stores: stores,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces the report of one stored run.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	summary, err := g.stores.Summaries.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	trades, err := g.stores.Trades.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	var days []*domain.DailyPerformance
	if g.stores.Daily != nil {
		if days, err = g.stores.Daily.GetByRunID(ctx, runID); err != nil {
			return nil, err
		}
	}

	var years []*domain.YearlyResult
	if g.stores.Yearly != nil {
		if years, err = g.stores.Yearly.GetByRunID(ctx, runID); err != nil {
			return nil, err
		}
	}

	return Build(summary, trades, days, years, g.now()), nil
}

// Build assembles a report from in-memory results.
func Build(summary *domain.RunSummary, trades []*domain.SimulatedTrade, days []*domain.DailyPerformance, years []*domain.YearlyResult, generatedAt time.Time) *Report {
	best, worst := rankDays(days)
	return &Report{
		GeneratedAt:   generatedAt,
		Summary:       summary,
		Yearly:        years,
		BestDays:      best,
		WorstDays:     worst,
		ExitReasons:   exitReasonRows(trades),
		RankBreakdown: rankRows(trades),
	}
}

// rankDays returns up to topDays best and worst trading days by dollar P&L.
// Days without entered trades are ignored. Ties break by date ASC.
func rankDays(days []*domain.DailyPerformance) (best, worst []*domain.DailyPerformance) {
	active := make([]*domain.DailyPerformance, 0, len(days))
	for _, d := range days {
		if d.Entered > 0 {
			active = append(active, d)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].DollarPnL != active[j].DollarPnL {
			return active[i].DollarPnL > active[j].DollarPnL
		}
		return active[i].Date.Before(active[j].Date)
	})

	n := topDays
	if len(active) < n {
		n = len(active)
	}
	best = append(best, active[:n]...)
	for i := len(active) - 1; i >= len(active)-n; i-- {
		worst = append(worst, active[i])
	}
	return best, worst
}

func exitReasonRows(trades []*domain.SimulatedTrade) []ExitReasonRow {
	type acc struct {
		n   int
		sum float64
	}
	byReason := make(map[string]*acc)
	for _, t := range trades {
		if !t.Entered {
			continue
		}
		a, ok := byReason[t.ExitReason]
		if !ok {
			a = &acc{}
			byReason[t.ExitReason] = a
		}
		a.n++
		a.sum += t.PnLPct
	}

	rows := make([]ExitReasonRow, 0, len(byReason))
	for reason, a := range byReason {
		rows = append(rows, ExitReasonRow{Reason: reason, Trades: a.n, MeanPnLPct: a.sum / float64(a.n)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Reason < rows[j].Reason })
	return rows
}

func rankRows(trades []*domain.SimulatedTrade) []RankRow {
	byRank := make(map[int]*RankRow)
	wins := make(map[int]int)
	for _, t := range trades {
		if !t.Entered {
			continue
		}
		r, ok := byRank[t.RVOLRank]
		if !ok {
			r = &RankRow{Rank: t.RVOLRank}
			byRank[t.RVOLRank] = r
		}
		r.Trades++
		r.DollarPnL += t.DollarPnL
		if t.IsWin() {
			wins[t.RVOLRank]++
		}
	}

	rows := make([]RankRow, 0, len(byRank))
	for rank, r := range byRank {
		r.WinRate = float64(wins[rank]) / float64(r.Trades)
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
	return rows
}
