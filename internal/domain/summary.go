package domain

import "time"

// RunSummary holds aggregate statistics of one backtest run.
type RunSummary struct {
	RunID       string
	StrategyID  string
	Compounding bool
	StartDate   time.Time
	EndDate     time.Time

	// Counts
	Candidates int
	Entered    int
	NoEntry    int
	Skipped    int
	Wins       int
	Losses     int
	WinRate    float64 // wins / entered

	// Ticker-level: a ticker wins when at least one of its trades made money
	Tickers       int
	TickerWinRate float64

	// pnl_pct distribution over entered trades
	PnLPctMean   float64
	PnLPctMedian float64
	PnLPctP10    float64
	PnLPctP90    float64
	PnLPctStddev float64

	// Dollar results
	TotalDollarPnL float64
	TotalBasePnL   float64
	ProfitFactor   float64 // gross wins / gross losses, 0 when no losses
	FinalEquity    float64 // compounding only

	// Risk
	MaxDrawdown          float64 // peak-to-trough in dollars
	MaxDrawdownPct       float64 // relative to peak
	MaxConsecutiveLosses int

	// Skips by reason
	SkipReasons map[string]int
}
