package domain

import "time"

// Direction is the opening-bar bias of a candidate.
type Direction int

// Direction values.
const (
	DirectionShort Direction = -1
	DirectionNone  Direction = 0
	DirectionLong  Direction = 1
)

// Side returns "long", "short" or "none".
func (d Direction) Side() string {
	switch d {
	case DirectionLong:
		return SideLong
	case DirectionShort:
		return SideShort
	default:
		return "none"
	}
}

// Sign returns the direction as a float multiplier for price moves.
func (d Direction) Sign() float64 {
	return float64(d)
}

// Side names used in configuration and output tables.
const (
	SideLong  = "long"
	SideShort = "short"
	SideBoth  = "both"
)

// Candidate is one row of the trade universe: a symbol-day with its opening-range metrics.
// Produced upstream by the universe builder and never mutated by the engine.
type Candidate struct {
	TradeDate time.Time // calendar date, midnight UTC
	Ticker    string
	Direction Direction
	RVOL      float64

	// Opening range (first 5-minute bar)
	OROpen   float64
	ORHigh   float64
	ORLow    float64
	ORClose  float64
	ORVolume float64

	// Daily metrics
	ATR14       float64
	AvgVolume14 float64
	PrevClose   float64

	// Serialized intraday bars (bars_json)
	Bars []byte
}

// HasOpeningRange reports whether the opening-range fields were populated upstream.
func (c *Candidate) HasOpeningRange() bool {
	return c.ORHigh > 0 && c.ORLow > 0 && c.ORHigh >= c.ORLow
}

// DateKey returns the trade date formatted as YYYY-MM-DD.
func (c *Candidate) DateKey() string {
	return c.TradeDate.Format(DateLayout)
}

// DateLayout is the layout of trade_date values in every table.
const DateLayout = "2006-01-02"

// NormalizeDate truncates t to its calendar date at midnight UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
