// Package simulation replays one candidate's post-opening-range bars against
// an entry trigger and a stop. It knows nothing about equity or risk.
package simulation

import (
	"time"

	"orb-lab/internal/domain"
)

// State is a state of the trade state machine.
type State int

// Trade states. EXITED_STOP, EXITED_EOD and NEVER_ENTERED are terminal.
const (
	WaitingForEntry State = iota
	InTrade
	ExitedStop
	ExitedEOD
	NeverEntered
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case WaitingForEntry:
		return "WAITING_FOR_ENTRY"
	case InTrade:
		return "IN_TRADE"
	case ExitedStop:
		return "EXITED_STOP"
	case ExitedEOD:
		return "EXITED_EOD"
	case NeverEntered:
		return "NEVER_ENTERED"
	default:
		return "UNKNOWN"
	}
}

// Options tunes simulation assumptions.
type Options struct {
	// SameBarExit lets the entry bar also hit the stop. By default a bar
	// can either enter or exit, never both.
	SameBarExit bool
}

// Order is the trade to simulate.
type Order struct {
	Direction domain.Direction
	Entry     float64
	Stop      float64
}

// Result is the price-level outcome of a simulation.
type Result struct {
	State      State
	Entered    bool
	EntryPrice float64
	EntryTime  time.Time
	ExitPrice  float64
	ExitTime   time.Time
	ExitReason string
	PriceMove  float64 // (exit - entry) * direction
	PnLPct     float64 // PriceMove / entry * 100
}

// Simulate runs the state machine over bars in chronological order.
// Fills happen exactly at the trigger or stop level; slippage is ignored.
func Simulate(bars []domain.Bar, o Order, opts Options) Result {
	if len(bars) == 0 {
		return Result{State: NeverEntered, ExitReason: domain.ExitReasonNoBars}
	}

	res := Result{State: WaitingForEntry}

	for _, b := range bars {
		switch res.State {
		case WaitingForEntry:
			if !triggered(b, o) {
				continue
			}
			res.State = InTrade
			res.Entered = true
			res.EntryPrice = o.Entry
			res.EntryTime = b.Time
			if opts.SameBarExit && stopped(b, o) {
				res.exit(ExitedStop, o.Stop, b.Time, domain.ExitReasonStopLoss)
			}
		case InTrade:
			if stopped(b, o) {
				res.exit(ExitedStop, o.Stop, b.Time, domain.ExitReasonStopLoss)
			}
		}

		if res.State == ExitedStop {
			break
		}
	}

	switch res.State {
	case WaitingForEntry:
		res.State = NeverEntered
		res.ExitReason = domain.ExitReasonNoEntry
		return res
	case InTrade:
		last := bars[len(bars)-1]
		res.exit(ExitedEOD, last.Close, last.Time, domain.ExitReasonEOD)
	}

	res.PriceMove = (res.ExitPrice - res.EntryPrice) * o.Direction.Sign()
	res.PnLPct = res.PriceMove / res.EntryPrice * 100
	return res
}

func (r *Result) exit(state State, price float64, at time.Time, reason string) {
	r.State = state
	r.ExitPrice = price
	r.ExitTime = at
	r.ExitReason = reason
}

// triggered reports whether the bar reaches the entry level.
func triggered(b domain.Bar, o Order) bool {
	if o.Direction == domain.DirectionShort {
		return b.Low <= o.Entry
	}
	return b.High >= o.Entry
}

// stopped reports whether the bar reaches the stop level.
func stopped(b domain.Bar, o Order) bool {
	if o.Direction == domain.DirectionShort {
		return b.High >= o.Stop
	}
	return b.Low <= o.Stop
}
