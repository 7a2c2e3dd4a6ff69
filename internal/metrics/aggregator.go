package metrics

import (
	"context"
	"errors"
	"fmt"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

// ErrNoTrades is returned when no trades are available for aggregation.
var ErrNoTrades = errors.New("no trades available for aggregation")

// Aggregator recomputes run summaries from persisted results.
type Aggregator struct {
	tradeStore   storage.TradeStore
	curveStore   storage.EquityCurveStore
	summaryStore storage.RunSummaryStore
}

// NewAggregator creates a new metrics aggregator. curveStore may be nil for fixed-mode runs.
func NewAggregator(tradeStore storage.TradeStore, curveStore storage.EquityCurveStore, summaryStore storage.RunSummaryStore) *Aggregator {
	return &Aggregator{
		tradeStore:   tradeStore,
		curveStore:   curveStore,
		summaryStore: summaryStore,
	}
}

// ComputeForRun loads a run's trades and equity curve and summarizes them.
// Returns ErrNoTrades if the run has no trades.
func (a *Aggregator) ComputeForRun(ctx context.Context, runID, strategyID string, capital float64) (*domain.RunSummary, error) {
	trades, err := a.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}

	var curve []*domain.EquityCurvePoint
	if a.curveStore != nil {
		curve, err = a.curveStore.GetByRunID(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("load equity curve: %w", err)
		}
	}

	s := Summarize(trades, curve, capital)
	s.RunID = runID
	s.StrategyID = strategyID
	s.Compounding = len(curve) > 0
	return s, nil
}

// ComputeAndStore computes and persists the summary.
// Returns storage.ErrDuplicateKey if the summary already exists (append-only).
func (a *Aggregator) ComputeAndStore(ctx context.Context, runID, strategyID string, capital float64) (*domain.RunSummary, error) {
	s, err := a.ComputeForRun(ctx, runID, strategyID, capital)
	if err != nil {
		return nil, err
	}

	if err := a.summaryStore.Insert(ctx, s); err != nil {
		return nil, err
	}

	return s, nil
}
