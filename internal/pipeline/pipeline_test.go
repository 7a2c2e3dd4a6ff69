package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb-lab/internal/backtest"
	"orb-lab/internal/domain"
	"orb-lab/internal/observability"
	"orb-lab/internal/storage"
	"orb-lab/internal/storage/memory"
	"orb-lab/internal/storage/parquetfile"
)

var (
	fixedTime = time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)
	startDate = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	universe *memory.UniverseStore
	stores   storage.ResultStores
	trades   *memory.TradeStore
	curve    *memory.EquityCurveStore
	yearly   *memory.YearlyResultStore
	summary  *memory.RunSummaryStore
	metrics  *observability.Metrics
}

func newFixture(t *testing.T, candidates []*domain.Candidate) *fixture {
	t.Helper()

	f := &fixture{
		universe: memory.NewUniverseStore(),
		trades:   memory.NewTradeStore(),
		curve:    memory.NewEquityCurveStore(),
		yearly:   memory.NewYearlyResultStore(),
		summary:  memory.NewRunSummaryStore(),
		metrics:  observability.NewMetrics("test", prometheus.NewRegistry()),
	}
	f.stores = storage.ResultStores{
		Trades:      f.trades,
		Daily:       memory.NewDailyPerformanceStore(),
		EquityCurve: f.curve,
		Yearly:      f.yearly,
		Summaries:   f.summary,
	}
	if len(candidates) > 0 {
		require.NoError(t, f.universe.InsertBulk(context.Background(), candidates))
	}
	return f
}

func compoundingRunner(t *testing.T, runID string) *backtest.Runner {
	t.Helper()

	cfg := backtest.DefaultConfig()
	cfg.Compound = true
	cfg.DailyRiskTarget = 0.05
	cfg.TopN = 3
	cfg.Leverage = 2

	r, err := backtest.NewRunner(cfg, backtest.RunnerOptions{NewID: func() string { return runID }})
	require.NoError(t, err)
	return r
}

func (f *fixture) options(runner *backtest.Runner, dir string) Options {
	return Options{
		Universe:  f.universe,
		Runner:    runner,
		Stores:    f.stores,
		From:      startDate,
		To:        startDate.AddDate(1, 0, 0),
		OutputDir: dir,
		Formats:   []string{FormatCSV, FormatParquet, FormatMarkdown},
		Metrics:   f.metrics,
		Clock:     func() time.Time { return fixedTime },
	}
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f := newFixture(t, SampleUniverse(startDate, 10, nil))

	p, err := New(f.options(compoundingRunner(t, "run-1"), dir))
	require.NoError(t, err)

	out, err := p.Run(ctx)
	require.NoError(t, err)

	res := out.Results
	assert.Equal(t, "run-1", res.RunID)
	assert.True(t, res.Compounding)
	assert.Len(t, res.Trades, 30, "top 3 of 5 tickers over 10 days")
	assert.Len(t, res.EquityCurve, 10)
	assert.Greater(t, res.Summary.Entered, 0)

	// Persisted
	trades, err := f.trades.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, trades, len(res.Trades))

	curve, err := f.curve.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, curve, 10)

	years, err := f.yearly.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, years, 1)

	summary, err := f.summary.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, res.Summary.TotalDollarPnL, summary.TotalDollarPnL)

	// Exported
	for _, name := range []string{
		"trades.csv", "daily_performance.csv", "equity_curve.csv", "yearly_results.csv", "summary.csv",
		parquetfile.TradesFile, parquetfile.DailyFile, parquetfile.EquityCurveFile, parquetfile.YearlyFile,
		ReportFile, ManifestFile,
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	fromParquet, err := parquetfile.ReadTrades(filepath.Join(dir, parquetfile.TradesFile))
	require.NoError(t, err)
	assert.Len(t, fromParquet, len(res.Trades))

	report, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	assert.Contains(t, string(report), "## Data Quality")
	assert.Contains(t, string(report), "## Reproducibility")

	var m Manifest
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "run-1", m.RunID)
	assert.True(t, fixedTime.Equal(m.GeneratedAt))
	assert.Len(t, m.DataVersion, 12)
	assert.Contains(t, m.Files, ReportFile)

	// Metrics
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PipelineRunsTotal.WithLabelValues(PhaseExport, "success")))
	assert.Equal(t, float64(len(res.Trades)), testutil.ToFloat64(f.metrics.RowsPersisted.WithLabelValues("simulated_trades")))
	assert.Equal(t, float64(fixedTime.Unix()), testutil.ToFloat64(f.metrics.LastSuccessfulPipeline))
}

func TestPipeline_Deterministic(t *testing.T) {
	var outputs []string

	for run := 0; run < 2; run++ {
		dir := t.TempDir()
		f := newFixture(t, SampleUniverse(startDate, 5, nil))
		p, err := New(f.options(compoundingRunner(t, "same-run"), dir))
		require.NoError(t, err)

		_, err = p.Run(context.Background())
		require.NoError(t, err)

		var sb strings.Builder
		for _, name := range []string{"trades.csv", "daily_performance.csv", "equity_curve.csv", ReportFile} {
			b, err := os.ReadFile(filepath.Join(dir, name))
			require.NoError(t, err)
			sb.Write(b)
		}
		outputs = append(outputs, sb.String())
	}

	assert.Equal(t, outputs[0], outputs[1])
}

func TestPipeline_FixedModeSkipsCompoundingOutputs(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, SampleUniverse(startDate, 3, nil))

	r, err := backtest.NewRunner(backtest.DefaultConfig(), backtest.RunnerOptions{})
	require.NoError(t, err)

	p, err := New(f.options(r, dir))
	require.NoError(t, err)

	out, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Results.Compounding)

	assert.FileExists(t, filepath.Join(dir, "trades.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "equity_curve.csv"))
	assert.NoFileExists(t, filepath.Join(dir, parquetfile.YearlyFile))
}

func TestPipeline_EmptyUniverseWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	f := newFixture(t, nil)

	p, err := New(f.options(compoundingRunner(t, "run-1"), dir))
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, backtest.ErrEmptyUniverse)
	assert.NoDirExists(t, dir)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PipelineRunsTotal.WithLabelValues(PhaseLoad, "error")))
}

func TestPipeline_DateRangeOutsideUniverse(t *testing.T) {
	f := newFixture(t, SampleUniverse(startDate, 3, nil))
	opts := f.options(compoundingRunner(t, "run-1"), t.TempDir())
	opts.From = startDate.AddDate(2, 0, 0)
	opts.To = startDate.AddDate(3, 0, 0)

	p, err := New(opts)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, backtest.ErrEmptyUniverse)
}

func TestPipeline_StrictSufficiency(t *testing.T) {
	universe := SampleUniverse(startDate, 2, nil)
	universe[0].Bars = []byte("not json")
	universe[1].Bars = nil

	f := newFixture(t, universe)
	opts := f.options(compoundingRunner(t, "run-1"), t.TempDir())
	opts.Strict = true

	p, err := New(opts)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, ErrInsufficientData)

	trades, err := f.trades.GetByRunID(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestPipeline_DuplicateRunFailsPersist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, SampleUniverse(startDate, 2, nil))

	opts := f.options(compoundingRunner(t, "run-1"), t.TempDir())
	opts.Formats = nil

	p, err := New(opts)
	require.NoError(t, err)

	_, err = p.Run(ctx)
	require.NoError(t, err)

	_, err = p.Run(ctx)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PipelineRunsTotal.WithLabelValues(PhasePersist, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DBQueryErrors.WithLabelValues("memory", "insert_simulated_trades")))
}

type failingUniverse struct{}

func (failingUniverse) GetByDateRange(context.Context, time.Time, time.Time) ([]*domain.Candidate, error) {
	return nil, errors.New("connection refused")
}

func TestPipeline_UniverseError(t *testing.T) {
	p, err := New(Options{
		Universe: failingUniverse{},
		Runner:   compoundingRunner(t, "run-1"),
	})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{Runner: compoundingRunner(t, "r")})
	assert.ErrorIs(t, err, ErrNoUniverse)

	_, err = New(Options{Universe: memory.NewUniverseStore()})
	assert.ErrorIs(t, err, ErrNoRunner)
}

func TestBackendOf(t *testing.T) {
	assert.Equal(t, "memory", backendOf(memory.NewTradeStore()))
	assert.Equal(t, "pipeline", backendOf(failingUniverse{}))
}
