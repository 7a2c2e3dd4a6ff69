package strategy

import (
	"fmt"

	"orb-lab/internal/domain"
	"orb-lab/internal/openrange"
)

// Stop modes
const (
	StopModeOR  = "or"
	StopModeATR = "atr"
)

// StopPolicy places the protective stop for an entry.
type StopPolicy interface {
	Stop(entry float64, r openrange.Range, atr14 float64) float64
	Name() string
}

// ORStop puts the stop on the opposite side of the opening range.
type ORStop struct{}

// Stop returns the range low for longs and the range high for shorts.
func (ORStop) Stop(_ float64, r openrange.Range, _ float64) float64 {
	if r.Direction == domain.DirectionShort {
		return r.High
	}
	return r.Low
}

// Name returns the policy identifier.
func (ORStop) Name() string {
	return StopModeOR
}

// ATRStop puts the stop a fraction of ATR away from the entry.
type ATRStop struct {
	Scale float64 // e.g. 0.10 = 10% of ATR
}

// Stop returns entry - scale*ATR for longs and entry + scale*ATR for shorts.
func (s ATRStop) Stop(entry float64, r openrange.Range, atr14 float64) float64 {
	if r.Direction == domain.DirectionShort {
		return entry + s.Scale*atr14
	}
	return entry - s.Scale*atr14
}

// Name returns the policy identifier.
func (s ATRStop) Name() string {
	return fmt.Sprintf("%s%.0f", StopModeATR, s.Scale*100)
}

var (
	_ StopPolicy = ORStop{}
	_ StopPolicy = ATRStop{}
)
