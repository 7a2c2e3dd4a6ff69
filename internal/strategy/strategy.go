package strategy

import (
	"errors"
	"fmt"

	"orb-lab/internal/domain"
	"orb-lab/internal/openrange"
)

// Level errors
var (
	ErrNoDirection  = errors.New("opening range has no direction")
	ErrInvalidRange = errors.New("opening range high/low invalid")
)

// Config selects the per-run ORB parameters.
type Config struct {
	StopMode     string    `yaml:"stop_mode" default:"or" validate:"oneof=or atr"`
	StopATRScale float64   `yaml:"stop_atr_scale" default:"0.10" validate:"gte=0"`
	MinRVOL      Threshold `yaml:"min_rvol"`
}

// Levels holds the price levels of one candidate trade.
type Levels struct {
	Direction domain.Direction
	Entry     float64
	Stop      float64
}

// RiskFraction returns |entry - stop| / entry, or 0 when entry is not positive.
func (l Levels) RiskFraction() float64 {
	if l.Entry <= 0 {
		return 0
	}
	d := l.Entry - l.Stop
	if d < 0 {
		d = -d
	}
	return d / l.Entry
}

// ORB is the opening-range-breakout strategy resolved for one run.
type ORB struct {
	stop    StopPolicy
	minRVOL func(domain.Direction) float64
}

// NewORB creates an ORB strategy from a stop policy and an RVOL threshold.
func NewORB(stop StopPolicy, minRVOL Threshold) *ORB {
	return &ORB{
		stop:    stop,
		minRVOL: minRVOL.Resolve(),
	}
}

// ID returns the strategy identifier including parameters.
func (s *ORB) ID() string {
	return fmt.Sprintf("ORB_%s", s.stop.Name())
}

// Qualifies reports whether a candidate's RVOL clears the threshold for its side.
func (s *ORB) Qualifies(dir domain.Direction, rvol float64) bool {
	return rvol >= s.minRVOL(dir)
}

// Levels computes the entry trigger and stop for an opening range.
// Entry is the range high for longs and the range low for shorts.
func (s *ORB) Levels(r openrange.Range, atr14 float64) (Levels, error) {
	if r.High <= 0 || r.Low <= 0 || r.High < r.Low {
		return Levels{}, ErrInvalidRange
	}

	var entry float64
	switch r.Direction {
	case domain.DirectionLong:
		entry = r.High
	case domain.DirectionShort:
		entry = r.Low
	default:
		return Levels{}, ErrNoDirection
	}

	return Levels{
		Direction: r.Direction,
		Entry:     entry,
		Stop:      s.stop.Stop(entry, r, atr14),
	}, nil
}
