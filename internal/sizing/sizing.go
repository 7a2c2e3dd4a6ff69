// Package sizing decides how many dollars go into each trade.
package sizing

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidEntry is returned when the entry price is not positive.
	ErrInvalidEntry = errors.New("entry price must be > 0")
	// ErrZeroRisk is returned when entry and stop coincide.
	ErrZeroRisk = errors.New("entry and stop prices cannot be the same")
	// ErrInvalidEquity is returned when sizing against non-positive equity.
	ErrInvalidEquity = errors.New("equity must be > 0")
)

// Position is a sizing decision.
type Position struct {
	Size float64 // dollars committed before leverage, or including it when ApplyLeverage is false

	// ApplyLeverage tells the simulator whether to multiply Size by leverage.
	// Compounding sizes already embed leverage and must never be levered twice.
	ApplyLeverage bool

	RiskAmount float64 // dollars at risk, compounding only
	Capped     bool    // size was limited by equity * leverage
}

// Sizer computes a position for one trade.
type Sizer interface {
	Size(equity, entry, stop float64) (Position, error)
	Compounding() bool
}

// Fixed commits the same capital to every trade.
type Fixed struct {
	Capital float64
}

// NewFixed creates a fixed-capital sizer.
func NewFixed(capital float64) *Fixed {
	return &Fixed{Capital: capital}
}

// Size ignores equity and stop distance.
func (f *Fixed) Size(_, entry, _ float64) (Position, error) {
	if entry <= 0 || math.IsNaN(entry) {
		return Position{}, ErrInvalidEntry
	}
	return Position{Size: f.Capital, ApplyLeverage: true}, nil
}

// Compounding reports false.
func (f *Fixed) Compounding() bool { return false }

// Risk sizes positions so that a stop-out loses RiskPerTrade of equity.
type Risk struct {
	RiskPerTrade float64 // fraction of equity
	Leverage     float64
}

// NewRisk creates a risk-normalized sizer.
func NewRisk(riskPerTrade, leverage float64) *Risk {
	return &Risk{RiskPerTrade: riskPerTrade, Leverage: leverage}
}

// Size returns risk_amount / stop_fraction capped at equity * leverage.
func (r *Risk) Size(equity, entry, stop float64) (Position, error) {
	if entry <= 0 || math.IsNaN(entry) {
		return Position{}, ErrInvalidEntry
	}
	if equity <= 0 {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalidEquity, equity)
	}

	stopFraction := math.Abs(entry-stop) / entry
	if stopFraction == 0 || math.IsNaN(stopFraction) {
		return Position{}, ErrZeroRisk
	}

	risk := equity * r.RiskPerTrade
	pos := Position{
		Size:       risk / stopFraction,
		RiskAmount: risk,
	}

	if limit := equity * r.Leverage; pos.Size > limit {
		pos.Size = limit
		pos.Capped = true
	}
	return pos, nil
}

// Compounding reports true.
func (r *Risk) Compounding() bool { return true }

// RiskPerTrade derives the per-trade risk fraction from a daily target
// spread evenly over topN trades.
func RiskPerTrade(dailyTarget float64, topN int) float64 {
	if topN <= 0 {
		return 0
	}
	return dailyTarget / float64(topN)
}

// Shares converts an exposure into a whole share count, at least 1,
// capped at maxShares when maxShares > 0.
func Shares(exposure, entry float64, maxShares int) (int, error) {
	if entry <= 0 {
		return 0, ErrInvalidEntry
	}
	if exposure <= 0 {
		return 0, fmt.Errorf("exposure must be > 0, got %v", exposure)
	}

	shares := int(math.Floor(exposure / entry))
	if maxShares > 0 && shares > maxShares {
		shares = maxShares
	}
	if shares < 1 {
		shares = 1
	}
	return shares, nil
}
