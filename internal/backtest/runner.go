// Package backtest runs the ORB strategy over a candidate universe day by day.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"orb-lab/internal/domain"
	"orb-lab/internal/ledger"
	"orb-lab/internal/metrics"
	"orb-lab/internal/observability"
	"orb-lab/internal/simulation"
	"orb-lab/internal/strategy"
)

// ErrEmptyUniverse is returned when a run is started without candidates.
var ErrEmptyUniverse = errors.New("empty universe")

// Results holds backtest output.
type Results struct {
	RunID       string
	StrategyID  string
	Compounding bool
	Trades      []*domain.SimulatedTrade
	Daily       []*domain.DailyPerformance
	EquityCurve []*domain.EquityCurvePoint
	Yearly      []*domain.YearlyResult
	Summary     *domain.RunSummary
}

// RunnerOptions holds optional collaborators.
type RunnerOptions struct {
	Logger  zerolog.Logger
	Metrics *observability.Metrics // nil disables metrics
	NewID   func() string          // run id generator, defaults to uuid
}

// Runner executes backtests with one immutable configuration.
// It holds no state between runs.
type Runner struct {
	cfg     Config
	orb     *strategy.ORB
	log     zerolog.Logger
	metrics *observability.Metrics
	newID   func() string
}

// NewRunner validates cfg and resolves the strategy.
func NewRunner(cfg Config, opts RunnerOptions) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	orb, err := strategy.FromConfig(cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Runner{
		cfg:     cfg,
		orb:     orb,
		log:     opts.Logger,
		metrics: opts.Metrics,
		newID:   opts.NewID,
	}, nil
}

// StrategyID returns the identifier of the configured strategy.
func (r *Runner) StrategyID() string {
	return r.orb.ID()
}

// Run simulates the universe in (trade_date, rvol rank) order.
// Every distinct trade date produces a daily row, including days where no
// candidate survives selection.
func (r *Runner) Run(ctx context.Context, universe []*domain.Candidate) (*Results, error) {
	if len(universe) == 0 {
		return nil, ErrEmptyUniverse
	}

	runID := r.newID()
	log := r.log.With().Str("run_id", runID).Str("strategy", r.orb.ID()).Logger()
	start := time.Now()

	sizer := r.cfg.Sizer()
	engine := NewEngine(runID, r.orb, sizer, r.cfg.Leverage,
		simulation.Options{SameBarExit: r.cfg.SameBarExit}, log)
	book := ledger.New(ledger.Config{
		RunID:          runID,
		InitialCapital: r.cfg.InitialCapital,
		Floor:          r.cfg.EquityFloor,
		Compounding:    sizer.Compounding(),
	})

	selected := Select(universe, r.cfg, r.orb)
	days := TradingDays(universe)

	log.Info().
		Int("candidates", len(universe)).
		Int("days", len(days)).
		Bool("compound", r.cfg.Compound).
		Msg("backtest started")

	var trades []*domain.SimulatedTrade

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := book.BeginDay(day); err != nil {
			return nil, err
		}

		for _, c := range selected[day.Format(domain.DateLayout)] {
			var t *domain.SimulatedTrade
			if r.cfg.StopOnRuin && book.Ruined() {
				t = engine.Ruined(c, book.Equity())
			} else {
				t = engine.Evaluate(c, r.sizingEquity(book))
			}

			if err := book.Record(t); err != nil {
				return nil, err
			}
			trades = append(trades, t)

			r.metrics.RecordCandidate(t.Outcome, t.SkipReason)
			if t.Entered {
				r.metrics.RecordEntered()
			}
		}

		_, point, ok, err := book.EndDay()
		if err != nil {
			return nil, err
		}
		if ok {
			r.metrics.RecordEquity(point.Equity, point.Clamped)
			if point.Clamped {
				log.Warn().
					Str("date", day.Format(domain.DateLayout)).
					Float64("day_pnl", point.DayPnL).
					Float64("floor", point.Equity).
					Msg("equity clamped to floor")
			}
		}
	}

	if err := book.Finish(); err != nil {
		return nil, err
	}

	res := &Results{
		RunID:       runID,
		StrategyID:  r.orb.ID(),
		Compounding: sizer.Compounding(),
		Trades:      trades,
		Daily:       ptrs(book.Daily()),
		EquityCurve: ptrs(book.Curve()),
		Yearly:      ptrs(book.Yearly()),
	}
	res.Summary = metrics.Summarize(res.Trades, res.EquityCurve, r.cfg.EffectiveCapital())
	res.Summary.RunID = runID
	res.Summary.StrategyID = r.orb.ID()
	res.Summary.Compounding = res.Compounding

	log.Info().
		Int("trades", len(trades)).
		Int("entered", res.Summary.Entered).
		Int("skipped", res.Summary.Skipped).
		Float64("dollar_pnl", res.Summary.TotalDollarPnL).
		Dur("elapsed", time.Since(start)).
		Msg("backtest finished")

	return res, nil
}

// sizingEquity is the equity a new position is sized against.
func (r *Runner) sizingEquity(book *ledger.Ledger) float64 {
	if r.cfg.IntradayCompounding {
		return book.Equity() + book.DayPnL()
	}
	return book.Equity()
}

func ptrs[T any](in []T) []*T {
	out := make([]*T, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	return out
}
