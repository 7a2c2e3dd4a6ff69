package backtest

import (
	"errors"

	"github.com/rs/zerolog"

	"orb-lab/internal/bars"
	"orb-lab/internal/domain"
	"orb-lab/internal/idhash"
	"orb-lab/internal/openrange"
	"orb-lab/internal/simulation"
	"orb-lab/internal/sizing"
	"orb-lab/internal/strategy"
)

// Engine turns one selected candidate into a SimulatedTrade.
// Data problems become SKIPPED rows; Evaluate never fails.
type Engine struct {
	runID    string
	orb      *strategy.ORB
	sizer    sizing.Sizer
	leverage float64
	opts     simulation.Options
	log      zerolog.Logger
}

// NewEngine creates a per-run candidate engine.
func NewEngine(runID string, orb *strategy.ORB, sizer sizing.Sizer, leverage float64, opts simulation.Options, log zerolog.Logger) *Engine {
	return &Engine{
		runID:    runID,
		orb:      orb,
		sizer:    sizer,
		leverage: leverage,
		opts:     opts,
		log:      log,
	}
}

// Evaluate simulates c sized against equity.
func (e *Engine) Evaluate(c Ranked, equity float64) *domain.SimulatedTrade {
	t := e.newTrade(c)
	if e.sizer.Compounding() {
		t.EquityBefore = equity
	}

	decoded, err := bars.Decode(c.Bars)
	if err != nil {
		return e.skip(t, domain.SkipReasonBadBars, domain.ExitReasonNoBars, err)
	}

	rng, err := openrange.Anchor(c.Range, decoded)
	if err != nil {
		return e.skip(t, domain.SkipReasonNoOpeningBar, domain.ExitReasonNoBars, err)
	}

	levels, err := e.orb.Levels(rng, c.ATR14)
	if err != nil {
		reason := domain.SkipReasonInvalidEntry
		if errors.Is(err, strategy.ErrNoDirection) {
			reason = domain.SkipReasonNoDirection
		}
		return e.skip(t, reason, domain.ExitReasonNoEntry, err)
	}
	t.EntryLevel = levels.Entry
	t.StopLevel = levels.Stop

	pos, err := e.sizer.Size(equity, levels.Entry, levels.Stop)
	if err != nil {
		return e.skip(t, sizingSkipReason(err), domain.ExitReasonNoEntry, err)
	}
	t.PositionSize = pos.Size

	stream := openrange.After(decoded, rng)
	if len(stream) == 0 {
		return e.skip(t, domain.SkipReasonNoBars, domain.ExitReasonNoBars, nil)
	}

	res := simulation.Simulate(stream, simulation.Order{
		Direction: levels.Direction,
		Entry:     levels.Entry,
		Stop:      levels.Stop,
	}, e.opts)

	t.ExitReason = res.ExitReason
	if !res.Entered {
		t.Outcome = domain.OutcomeNoEntry
		return t
	}

	dollars := simulation.Price(res, pos.Size, e.leverage, pos.ApplyLeverage)

	entryTime, exitTime := res.EntryTime, res.ExitTime
	t.Outcome = domain.OutcomeEntered
	t.Entered = true
	t.EntryPrice = res.EntryPrice
	t.EntryTime = &entryTime
	t.ExitPrice = res.ExitPrice
	t.ExitTime = &exitTime
	t.PnLPct = res.PnLPct
	t.DollarPnL = dollars.DollarPnL
	t.BaseDollarPnL = dollars.BaseDollarPnL
	t.Shares = dollars.Shares
	return t
}

// Ruined records c as skipped because the account is at the equity floor.
func (e *Engine) Ruined(c Ranked, equity float64) *domain.SimulatedTrade {
	t := e.newTrade(c)
	t.EquityBefore = equity
	return e.skip(t, domain.SkipReasonRuined, domain.ExitReasonNoEntry, nil)
}

func (e *Engine) newTrade(c Ranked) *domain.SimulatedTrade {
	candidateID := idhash.ComputeCandidateID(c.TradeDate, c.Ticker)
	return &domain.SimulatedTrade{
		TradeID:     idhash.ComputeTradeID(e.runID, e.orb.ID(), candidateID, c.Rank),
		RunID:       e.runID,
		TradeDate:   domain.NormalizeDate(c.TradeDate),
		Ticker:      c.Ticker,
		Side:        c.Range.Direction.Side(),
		RVOL:        c.Range.RVOL,
		RVOLRank:    c.Rank,
		ATR14:       c.ATR14,
		AvgVolume14: c.AvgVolume14,
		PrevClose:   c.PrevClose,
	}
}

func (e *Engine) skip(t *domain.SimulatedTrade, reason, exitReason string, err error) *domain.SimulatedTrade {
	t.Outcome = domain.OutcomeSkipped
	t.SkipReason = reason
	t.ExitReason = exitReason

	e.log.Debug().
		Err(err).
		Str("ticker", t.Ticker).
		Str("trade_date", t.TradeDate.Format(domain.DateLayout)).
		Str("reason", reason).
		Msg("candidate skipped")
	return t
}

func sizingSkipReason(err error) string {
	switch {
	case errors.Is(err, sizing.ErrZeroRisk):
		return domain.SkipReasonZeroRisk
	case errors.Is(err, sizing.ErrInvalidEquity):
		return domain.SkipReasonRuined
	default:
		return domain.SkipReasonInvalidEntry
	}
}
