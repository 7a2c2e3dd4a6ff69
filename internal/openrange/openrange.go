// Package openrange extracts the opening 5-minute range of a symbol-day.
package openrange

import (
	"errors"
	"math"
	"time"

	"orb-lab/internal/domain"
)

// ErrNoOpeningBar is returned when no bar falls inside the regular session.
var ErrNoOpeningBar = errors.New("no opening bar in regular session")

// Range is the opening range of one symbol-day.
type Range struct {
	Start     time.Duration // time of day of the opening bar
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Direction domain.Direction
	RVOL      float64
}

// Locate returns the index of the opening bar: the bar stamped exactly 09:30,
// otherwise the earliest bar inside [09:30, 16:00).
func Locate(bars []domain.Bar) (int, error) {
	fallback := -1
	for i, b := range bars {
		if b.TimeOfDay == domain.SessionOpen {
			return i, nil
		}
		if fallback < 0 && inSession(b.TimeOfDay) {
			fallback = i
		}
	}
	if fallback < 0 {
		return -1, ErrNoOpeningBar
	}
	return fallback, nil
}

// DirectionOf classifies the opening bar: bullish +1, bearish -1, doji 0.
func DirectionOf(open, closePrice float64) domain.Direction {
	switch {
	case closePrice > open:
		return domain.DirectionLong
	case closePrice < open:
		return domain.DirectionShort
	default:
		return domain.DirectionNone
	}
}

// RVOL extrapolates the opening bar volume to a full session and divides it by
// the trailing 14-day average daily volume. Returns 0 when the average is unusable.
func RVOL(orVolume, avgVolume14 float64) float64 {
	if avgVolume14 <= 0 || math.IsNaN(avgVolume14) || math.IsInf(avgVolume14, 0) {
		return 0
	}
	return orVolume * domain.BarsPerSession / avgVolume14
}

// FromBars derives the opening range from decoded bars.
func FromBars(bars []domain.Bar, avgVolume14 float64) (Range, error) {
	idx, err := Locate(bars)
	if err != nil {
		return Range{}, err
	}
	b := bars[idx]
	return Range{
		Start:     b.TimeOfDay,
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
		Direction: DirectionOf(b.Open, b.Close),
		RVOL:      RVOL(b.Volume, avgVolume14),
	}, nil
}

// FromCandidate uses the opening range computed upstream by the universe builder.
// Start is the nominal session open until the range is anchored to decoded bars.
func FromCandidate(c *domain.Candidate) Range {
	return Range{
		Start:     domain.SessionOpen,
		Open:      c.OROpen,
		High:      c.ORHigh,
		Low:       c.ORLow,
		Close:     c.ORClose,
		Volume:    c.ORVolume,
		Direction: c.Direction,
		RVOL:      c.RVOL,
	}
}

// Anchor sets r.Start to the opening bar located in bars, so the stream
// returned by After never contains the bar the range was taken from.
func Anchor(r Range, bars []domain.Bar) (Range, error) {
	idx, err := Locate(bars)
	if err != nil {
		return Range{}, err
	}
	r.Start = bars[idx].TimeOfDay
	return r, nil
}

// Resolve prefers the candidate's own opening range and falls back to the bars.
// Either way the range is anchored to the opening bar found in bars.
func Resolve(c *domain.Candidate, bars []domain.Bar) (Range, error) {
	if c.HasOpeningRange() {
		return Anchor(FromCandidate(c), bars)
	}
	return FromBars(bars, c.AvgVolume14)
}

// After returns the bars strictly after the opening bar and before the session close.
func After(bars []domain.Bar, r Range) []domain.Bar {
	out := make([]domain.Bar, 0, len(bars))
	for _, b := range bars {
		if b.TimeOfDay > r.Start && b.TimeOfDay < domain.SessionClose {
			out = append(out, b)
		}
	}
	return out
}

func inSession(tod time.Duration) bool {
	return tod >= domain.SessionOpen && tod < domain.SessionClose
}
