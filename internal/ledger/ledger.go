// Package ledger keeps the day-by-day and year-by-year account of a run.
//
// In compounding mode equity starts each calendar year at the initial
// capital, moves by the realized P&L of each day, and is clamped to a
// positive floor when a day would take it to zero or below.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"orb-lab/internal/domain"
)

var (
	// ErrDayOpen is returned when BeginDay is called before EndDay.
	ErrDayOpen = errors.New("day already open")
	// ErrNoDay is returned when recording outside of a day.
	ErrNoDay = errors.New("no open day")
	// ErrOutOfOrder is returned when days are not strictly ascending.
	ErrOutOfOrder = errors.New("days out of order")
)

// DefaultFloor is the equity an account is clamped to after ruin.
const DefaultFloor = 1.0

// Config holds ledger parameters.
type Config struct {
	RunID          string
	InitialCapital float64
	Floor          float64
	Compounding    bool
}

// Ledger accumulates per-day and per-year results. Not safe for concurrent use.
type Ledger struct {
	cfg Config

	equity    float64
	yearStart float64
	year      int

	yearTrades  int
	clampedDays int
	ruined      bool

	last time.Time
	day  *domain.DailyPerformance

	daily  []domain.DailyPerformance
	curve  []domain.EquityCurvePoint
	yearly []domain.YearlyResult
}

// New creates a ledger. A non-positive floor falls back to DefaultFloor.
func New(cfg Config) *Ledger {
	if cfg.Floor <= 0 {
		cfg.Floor = DefaultFloor
	}
	return &Ledger{cfg: cfg, equity: cfg.InitialCapital, yearStart: cfg.InitialCapital}
}

// BeginDay opens a trading day. Crossing into a new calendar year flushes
// the previous year and resets equity to the initial capital.
func (l *Ledger) BeginDay(date time.Time) error {
	if l.day != nil {
		return fmt.Errorf("%w: %s", ErrDayOpen, l.day.Date.Format(domain.DateLayout))
	}
	date = domain.NormalizeDate(date)
	if !l.last.IsZero() && !date.After(l.last) {
		return fmt.Errorf("%w: %s after %s", ErrOutOfOrder,
			date.Format(domain.DateLayout), l.last.Format(domain.DateLayout))
	}

	if date.Year() != l.year {
		if l.year != 0 {
			l.flushYear()
		}
		l.year = date.Year()
		l.equity = l.cfg.InitialCapital
		l.yearStart = l.cfg.InitialCapital
		l.yearTrades = 0
		l.clampedDays = 0
		l.ruined = false
	}

	l.last = date
	l.day = &domain.DailyPerformance{RunID: l.cfg.RunID, Date: date}
	return nil
}

// Equity returns the equity at the start of the current day.
func (l *Ledger) Equity() float64 {
	return l.equity
}

// DayPnL returns the P&L realized so far in the current day.
func (l *Ledger) DayPnL() float64 {
	if l.day == nil {
		return 0
	}
	return l.day.DollarPnL
}

// Ruined reports whether equity has been clamped during the current year.
func (l *Ledger) Ruined() bool {
	return l.ruined
}

// Record adds one processed candidate to the current day.
func (l *Ledger) Record(t *domain.SimulatedTrade) error {
	if l.day == nil {
		return ErrNoDay
	}

	l.day.Candidates++
	if !t.Entered {
		return nil
	}

	l.day.Entered++
	l.yearTrades++
	if t.IsWin() {
		l.day.Winners++
	} else {
		l.day.Losers++
	}
	l.day.BasePnL += t.BaseDollarPnL
	l.day.DollarPnL += t.DollarPnL
	return nil
}

// EndDay closes the current day. In compounding mode the day's P&L is
// applied to equity and a curve point is appended; ok is false otherwise.
func (l *Ledger) EndDay() (day domain.DailyPerformance, point domain.EquityCurvePoint, ok bool, err error) {
	if l.day == nil {
		return day, point, false, ErrNoDay
	}
	day = *l.day
	l.day = nil

	if !l.cfg.Compounding {
		l.daily = append(l.daily, day)
		return day, point, false, nil
	}

	l.equity += day.DollarPnL
	clamped := false
	if l.equity <= 0 {
		l.equity = l.cfg.Floor
		clamped = true
		l.clampedDays++
		l.ruined = true
	}

	day.EquityEnd = l.equity
	point = domain.EquityCurvePoint{
		RunID:   l.cfg.RunID,
		Date:    day.Date,
		Equity:  l.equity,
		DayPnL:  day.DollarPnL,
		Clamped: clamped,
	}

	l.daily = append(l.daily, day)
	l.curve = append(l.curve, point)
	return day, point, true, nil
}

// Finish flushes the last open year. Calling it with a day still open is an error.
func (l *Ledger) Finish() error {
	if l.day != nil {
		return fmt.Errorf("%w: %s", ErrDayOpen, l.day.Date.Format(domain.DateLayout))
	}
	if l.year != 0 {
		l.flushYear()
		l.year = 0
	}
	return nil
}

func (l *Ledger) flushYear() {
	if !l.cfg.Compounding {
		return
	}

	pnl := l.equity - l.yearStart
	ret := 0.0
	if l.yearStart > 0 {
		ret = pnl / l.yearStart * 100
	}

	l.yearly = append(l.yearly, domain.YearlyResult{
		RunID:         l.cfg.RunID,
		Year:          l.year,
		StartEquity:   l.yearStart,
		EndEquity:     l.equity,
		YearPnL:       pnl,
		YearReturnPct: ret,
		Trades:        l.yearTrades,
		ClampedDays:   l.clampedDays,
	})
}

// Daily returns all closed days.
func (l *Ledger) Daily() []domain.DailyPerformance { return l.daily }

// Curve returns the equity curve. Empty in fixed mode.
func (l *Ledger) Curve() []domain.EquityCurvePoint { return l.curve }

// Yearly returns flushed years. Empty in fixed mode.
func (l *Ledger) Yearly() []domain.YearlyResult { return l.yearly }
