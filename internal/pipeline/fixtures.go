package pipeline

import (
	"fmt"
	"strings"
	"time"

	"orb-lab/internal/domain"
	"orb-lab/internal/openrange"
)

// SampleTickers is the ticker set used by SampleUniverse when none is given.
var SampleTickers = []string{"AAPL", "AMD", "NVDA", "TSLA", "MSFT"}

// SampleUniverse builds a deterministic synthetic universe of the given number of
// weekdays starting at start. Used by --use-fixtures and tests.
func SampleUniverse(start time.Time, days int, tickers []string) []*domain.Candidate {
	if len(tickers) == 0 {
		tickers = SampleTickers
	}

	var out []*domain.Candidate
	d := domain.NormalizeDate(start)
	for i := 0; i < days; i++ {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		for j, ticker := range tickers {
			out = append(out, sampleCandidate(d, ticker, i, j))
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

// sampleCandidate lays out one symbol-day: an opening bar, then a path that
// either breaks out and holds, breaks out and reverses, or never breaks out.
func sampleCandidate(d time.Time, ticker string, day, idx int) *domain.Candidate {
	base := 10 + float64(idx)*5
	pattern := (day*7 + idx*3) % 4

	open := base
	closePrice := base * 1.01
	if pattern%2 == 1 {
		closePrice = base * 0.99
	}
	high := max(open, closePrice) + base*0.002
	low := min(open, closePrice) - base*0.002
	orVolume := 100000 + float64((day+idx)%5)*40000
	avgVolume := 2000000.0

	type bar struct{ o, h, l, c, v float64 }
	path := []bar{{open, high, low, closePrice, orVolume}}

	sign := 1.0
	if closePrice < open {
		sign = -1
	}
	last := closePrice
	for k := 1; k < 12; k++ {
		var step float64
		switch pattern {
		case 0, 1: // breakout that holds
			step = sign * base * 0.003
		case 2: // breakout that reverses through the stop
			if k < 4 {
				step = sign * base * 0.004
			} else {
				step = -sign * base * 0.006
			}
		default: // drifts inside the range
			step = 0
		}
		next := last + step
		path = append(path, bar{
			o: last,
			h: max(last, next) + base*0.001,
			l: min(last, next) - base*0.001,
			c: next,
			v: orVolume / 3,
		})
		last = next
	}

	var sb strings.Builder
	sb.WriteString("[")
	for k, b := range path {
		if k > 0 {
			sb.WriteString(",")
		}
		ts := d.Add(domain.SessionOpen + time.Duration(k)*5*time.Minute)
		sb.WriteString(fmt.Sprintf(`{"datetime":"%s","open":%.4f,"high":%.4f,"low":%.4f,"close":%.4f,"volume":%.0f}`,
			ts.Format("2006-01-02 15:04:05"), b.o, b.h, b.l, b.c, b.v))
	}
	sb.WriteString("]")

	return &domain.Candidate{
		TradeDate:   d,
		Ticker:      ticker,
		Direction:   openrange.DirectionOf(open, closePrice),
		RVOL:        openrange.RVOL(orVolume, avgVolume),
		OROpen:      open,
		ORHigh:      high,
		ORLow:       low,
		ORClose:     closePrice,
		ORVolume:    orVolume,
		ATR14:       base * 0.03,
		AvgVolume14: avgVolume,
		PrevClose:   base * 0.995,
		Bars:        []byte(sb.String()),
	}
}
