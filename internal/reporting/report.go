package reporting

import (
	"time"

	"orb-lab/internal/domain"
)

// Report is the human-readable view of one backtest run.
type Report struct {
	GeneratedAt time.Time

	Summary *domain.RunSummary
	Yearly  []*domain.YearlyResult

	// Best and worst days by leveraged dollar P&L
	BestDays  []*domain.DailyPerformance
	WorstDays []*domain.DailyPerformance

	// Entered trades grouped by exit reason
	ExitReasons []ExitReasonRow

	// Ranks 1..top_n with their entered-trade statistics
	RankBreakdown []RankRow

	// Set by the pipeline; nil when the report is rebuilt from storage
	DataQuality     *DataQualitySection
	Reproducibility *ReproducibilityMetadata
}

// DataQualitySection holds the universe checks run before the backtest.
type DataQualitySection struct {
	Checks          []QualityCheckRow
	IntegrityErrors []string
	AllChecksPassed bool
}

// QualityCheckRow is one universe check.
type QualityCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// ReproducibilityMetadata identifies the inputs of a run.
type ReproducibilityMetadata struct {
	GeneratorVersion string
	DataVersion      string // short hash over the universe
	ResultVersion    string // short hash over trade ids and P&L
	CommitHash       string
	ReplayCommand    string
}

// ExitReasonRow counts entered trades by exit reason.
type ExitReasonRow struct {
	Reason     string
	Trades     int
	MeanPnLPct float64
}

// RankRow summarizes entered trades by RVOL rank.
type RankRow struct {
	Rank      int
	Trades    int
	WinRate   float64
	DollarPnL float64
}
