package domain

import "time"

// Bar is one intraday OHLCV bar in exchange-local time.
type Bar struct {
	Time      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	TimeOfDay time.Duration // offset from local midnight
}

// Session boundaries for US equities, exchange-local.
const (
	SessionOpen  = 9*time.Hour + 30*time.Minute
	SessionClose = 16 * time.Hour

	// BarsPerSession is the number of 5-minute bars in a 6.5 hour session.
	BarsPerSession = 78
)
