package storage

import (
	"context"
	"time"

	"orb-lab/internal/domain"
)

// UniverseReader is the read side of the trade universe.
type UniverseReader interface {
	// GetByDateRange retrieves candidates with trade_date in [from, to] (inclusive),
	// ordered by trade_date ASC then load order.
	GetByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Candidate, error)
}

// UniverseStore provides access to universe_candidates storage.
type UniverseStore interface {
	UniverseReader

	// InsertBulk adds multiple candidates atomically. Fails entire batch on duplicate (trade_date, ticker).
	InsertBulk(ctx context.Context, candidates []*domain.Candidate) error

	// Get retrieves one candidate. Returns ErrNotFound if not exists.
	Get(ctx context.Context, tradeDate time.Time, ticker string) (*domain.Candidate, error)
}

// TradeStore provides access to simulated_trades storage.
type TradeStore interface {
	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate trade_id.
	InsertBulk(ctx context.Context, trades []*domain.SimulatedTrade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.SimulatedTrade, error)

	// GetByRunID retrieves all trades of a run, ordered by trade_date ASC, rvol_rank ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.SimulatedTrade, error)
}

// DailyPerformanceStore provides access to daily_performance storage.
type DailyPerformanceStore interface {
	// InsertBulk adds multiple rows. Fails entire batch on duplicate (run_id, date).
	InsertBulk(ctx context.Context, days []*domain.DailyPerformance) error

	// GetByRunID retrieves all days of a run, ordered by date ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.DailyPerformance, error)
}

// EquityCurveStore provides access to equity_curve storage.
type EquityCurveStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, date).
	InsertBulk(ctx context.Context, points []*domain.EquityCurvePoint) error

	// GetByRunID retrieves the curve of a run, ordered by date ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.EquityCurvePoint, error)
}

// YearlyResultStore provides access to yearly_results storage.
type YearlyResultStore interface {
	// InsertBulk adds multiple years. Fails entire batch on duplicate (run_id, year).
	InsertBulk(ctx context.Context, years []*domain.YearlyResult) error

	// GetByRunID retrieves all years of a run, ordered by year ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.YearlyResult, error)
}

// RunSummaryStore provides access to run_summaries storage.
type RunSummaryStore interface {
	// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, s *domain.RunSummary) error

	// GetByID retrieves a summary by run ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunSummary, error)

	// GetAll retrieves all summaries ordered by run_id.
	GetAll(ctx context.Context) ([]*domain.RunSummary, error)
}

// ResultStores groups the output stores a run is persisted to.
// Nil members are skipped.
type ResultStores struct {
	Trades      TradeStore
	Daily       DailyPerformanceStore
	EquityCurve EquityCurveStore
	Yearly      YearlyResultStore
	Summaries   RunSummaryStore
}
