package domain

import "time"

// SimulatedTrade is the outcome of simulating one selected candidate.
// Non-entered and skipped candidates produce a row too.
type SimulatedTrade struct {
	TradeID string // deterministic hash
	RunID   string

	// Candidate identity
	TradeDate   time.Time
	Ticker      string
	Side        string
	RVOL        float64
	RVOLRank    int
	EntryLevel  float64
	StopLevel   float64
	ATR14       float64
	AvgVolume14 float64
	PrevClose   float64

	// Outcome
	Outcome    string // ENTERED | NO_ENTRY | SKIPPED
	SkipReason string // set when Outcome == SKIPPED
	Entered    bool
	EntryPrice float64
	EntryTime  *time.Time
	ExitPrice  float64
	ExitTime   *time.Time
	ExitReason string // STOP_LOSS | EOD | NO_ENTRY | NO_BARS

	// P&L
	PnLPct        float64
	DollarPnL     float64 // leveraged
	BaseDollarPnL float64 // unleveraged
	PositionSize  float64
	Shares        float64
	EquityBefore  float64 // sizing equity (compounding mode)
}

// Exit reason codes
const (
	ExitReasonStopLoss = "STOP_LOSS"
	ExitReasonEOD      = "EOD"
	ExitReasonNoEntry  = "NO_ENTRY"
	ExitReasonNoBars   = "NO_BARS"
)

// Outcome codes
const (
	OutcomeEntered = "ENTERED"
	OutcomeNoEntry = "NO_ENTRY"
	OutcomeSkipped = "SKIPPED"
)

// Skip reason codes
const (
	SkipReasonBadBars      = "BAD_BARS"
	SkipReasonNoBars       = "NO_BARS" // no bars after the opening range
	SkipReasonNoOpeningBar = "NO_OPENING_BAR"
	SkipReasonNoDirection  = "NO_DIRECTION"
	SkipReasonInvalidEntry = "INVALID_ENTRY"
	SkipReasonZeroRisk     = "ZERO_RISK"
	SkipReasonRuined       = "RUINED"
)

// IsWin reports whether the trade was entered and made money.
func (t *SimulatedTrade) IsWin() bool {
	return t.Entered && t.DollarPnL > 0
}

// IsLoss reports whether the trade was entered and did not make money.
func (t *SimulatedTrade) IsLoss() bool {
	return t.Entered && t.DollarPnL <= 0
}
