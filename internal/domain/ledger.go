package domain

import "time"

// DailyPerformance aggregates one trading day.
type DailyPerformance struct {
	RunID      string
	Date       time.Time
	Candidates int
	Entered    int
	Winners    int
	Losers     int
	BasePnL    float64 // unleveraged dollar P&L
	DollarPnL  float64 // leveraged dollar P&L
	EquityEnd  float64 // compounding mode only, 0 otherwise
}

// EquityCurvePoint is one end-of-day equity observation (compounding mode).
type EquityCurvePoint struct {
	RunID   string
	Date    time.Time
	Equity  float64
	DayPnL  float64
	Clamped bool // equity hit the floor on this day
}

// YearlyResult summarizes one calendar year of compounding. Append-only.
type YearlyResult struct {
	RunID         string
	Year          int
	StartEquity   float64
	EndEquity     float64
	YearPnL       float64
	YearReturnPct float64
	Trades        int
	ClampedDays   int
}
