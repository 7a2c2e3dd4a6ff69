// Package pipeline loads a universe, runs the backtest and persists and exports its results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"orb-lab/internal/backtest"
	"orb-lab/internal/domain"
	"orb-lab/internal/observability"
	"orb-lab/internal/reporting"
	"orb-lab/internal/storage"
	"orb-lab/internal/storage/parquetfile"
)

// Pipeline errors
var (
	ErrNoUniverse       = errors.New("pipeline requires a universe reader")
	ErrNoRunner         = errors.New("pipeline requires a runner")
	ErrInsufficientData = errors.New("universe failed sufficiency checks")
)

// Phases reported to metrics.
const (
	PhaseLoad     = "load"
	PhaseCheck    = "check"
	PhaseBacktest = "backtest"
	PhasePersist  = "persist"
	PhaseExport   = "export"
)

// Output formats.
const (
	FormatCSV      = "csv"
	FormatParquet  = "parquet"
	FormatMarkdown = "markdown"
)

// Output file names.
const (
	ReportFile   = "REPORT.md"
	ManifestFile = "run.json"
)

// Options configures a Pipeline.
type Options struct {
	Universe storage.UniverseReader
	Runner   *backtest.Runner
	Stores   storage.ResultStores

	// Inclusive trade_date range to load
	From, To time.Time

	OutputDir string
	Formats   []string // empty writes nothing

	Thresholds SufficiencyThresholds
	Strict     bool // fail the run when a sufficiency check fails

	ReplayCommand string
	Metrics       *observability.Metrics
	Logger        zerolog.Logger
	Clock         func() time.Time
}

// Pipeline runs one backtest end to end.
type Pipeline struct {
	opts Options
}

// Outcome is what one pipeline run produced.
type Outcome struct {
	Results *backtest.Results
	Report  *reporting.Report
	Files   []string // written files, in write order
}

// New validates opts and creates a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Universe == nil {
		return nil, ErrNoUniverse
	}
	if opts.Runner == nil {
		return nil, ErrNoRunner
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.Thresholds == (SufficiencyThresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	return &Pipeline{opts: opts}, nil
}

// Run executes load, check, backtest, persist and export in order.
// Nothing is persisted or written unless the backtest succeeds.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	log := p.opts.Logger

	// 1. Load
	var universe []*domain.Candidate
	err := p.phase(PhaseLoad, func() error {
		start := time.Now()
		u, err := p.opts.Universe.GetByDateRange(ctx, p.opts.From, p.opts.To)
		p.opts.Metrics.RecordDBQuery(backendOf(p.opts.Universe), "get_by_date_range", time.Since(start).Seconds(), err)
		if err != nil {
			return fmt.Errorf("load universe: %w", err)
		}
		if len(u) == 0 {
			return fmt.Errorf("load universe: %w", backtest.ErrEmptyUniverse)
		}
		universe = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int("candidates", len(universe)).Msg("universe loaded")

	// 2. Sufficiency checks
	var quality *SufficiencyResult
	err = p.phase(PhaseCheck, func() error {
		quality = CheckUniverse(universe, p.opts.Thresholds)
		for _, c := range quality.Checks {
			if !c.Pass {
				log.Warn().Str("check", c.Name).Str("threshold", c.Threshold).Str("actual", c.Actual).Msg("sufficiency check failed")
			}
		}
		if p.opts.Strict && !quality.AllPass {
			return ErrInsufficientData
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 3. Backtest
	var res *backtest.Results
	err = p.phase(PhaseBacktest, func() error {
		r, err := p.opts.Runner.Run(ctx, universe)
		if err != nil {
			return fmt.Errorf("run backtest: %w", err)
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 4. Persist
	if err := p.phase(PhasePersist, func() error { return p.persist(ctx, res) }); err != nil {
		return nil, err
	}

	// 5. Export
	report := reporting.Build(res.Summary, res.Trades, res.Daily, res.Yearly, p.opts.Clock())
	report.DataQuality = toDataQuality(quality)
	report.Reproducibility = &reporting.ReproducibilityMetadata{
		GeneratorVersion: GeneratorVersion,
		DataVersion:      universeVersion(universe),
		ResultVersion:    resultVersion(res.Trades),
		CommitHash:       gitCommitHash(),
		ReplayCommand:    p.opts.ReplayCommand,
	}

	out := &Outcome{Results: res, Report: report}
	err = p.phase(PhaseExport, func() error {
		files, err := p.export(res, report)
		out.Files = files
		return err
	})
	if err != nil {
		return nil, err
	}

	p.opts.Metrics.RecordSuccess(p.opts.Clock().Unix())
	log.Info().
		Str("run_id", res.RunID).
		Int("files", len(out.Files)).
		Msg("pipeline finished")

	return out, nil
}

// phase runs fn and records its duration and status.
func (p *Pipeline) phase(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := "success"
	if err != nil {
		status = "error"
	}
	p.opts.Metrics.RecordPipelineRun(name, status, time.Since(start).Seconds())
	return err
}

// persist writes results to every configured store. Nil stores are skipped.
func (p *Pipeline) persist(ctx context.Context, res *backtest.Results) error {
	s := p.opts.Stores

	steps := []struct {
		table string
		store any
		rows  int
		fn    func() error
	}{
		{"simulated_trades", s.Trades, len(res.Trades), func() error { return s.Trades.InsertBulk(ctx, res.Trades) }},
		{"daily_performance", s.Daily, len(res.Daily), func() error { return s.Daily.InsertBulk(ctx, res.Daily) }},
		{"equity_curve", s.EquityCurve, len(res.EquityCurve), func() error { return s.EquityCurve.InsertBulk(ctx, res.EquityCurve) }},
		{"yearly_results", s.Yearly, len(res.Yearly), func() error { return s.Yearly.InsertBulk(ctx, res.Yearly) }},
		{"run_summaries", s.Summaries, 1, func() error { return s.Summaries.Insert(ctx, res.Summary) }},
	}

	for _, step := range steps {
		if step.store == nil {
			continue
		}
		start := time.Now()
		err := step.fn()
		p.opts.Metrics.RecordDBQuery(backendOf(step.store), "insert_"+step.table, time.Since(start).Seconds(), err)
		if err != nil {
			return fmt.Errorf("persist %s: %w", step.table, err)
		}
		p.opts.Metrics.RecordRowsPersisted(step.table, step.rows)
		p.opts.Logger.Debug().Str("table", step.table).Int("rows", step.rows).Msg("persisted")
	}
	return nil
}

// export writes the enabled output formats to OutputDir.
func (p *Pipeline) export(res *backtest.Results, report *reporting.Report) ([]string, error) {
	if len(p.opts.Formats) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var files []string
	writeText := func(name, content string) error {
		path := filepath.Join(p.opts.OutputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		files = append(files, path)
		return nil
	}
	writeParquet := func(name string, fn func(string) error) error {
		path := filepath.Join(p.opts.OutputDir, name)
		if err := fn(path); err != nil {
			return err
		}
		files = append(files, path)
		return nil
	}

	if p.wants(FormatCSV) {
		if err := writeText("trades.csv", reporting.RenderTradesCSV(res.Trades)); err != nil {
			return files, err
		}
		if err := writeText("daily_performance.csv", reporting.RenderDailyCSV(res.Daily)); err != nil {
			return files, err
		}
		if res.Compounding {
			if err := writeText("equity_curve.csv", reporting.RenderEquityCSV(res.EquityCurve)); err != nil {
				return files, err
			}
			if err := writeText("yearly_results.csv", reporting.RenderYearlyCSV(res.Yearly)); err != nil {
				return files, err
			}
		}
		if err := writeText("summary.csv", reporting.RenderSummaryCSV([]*domain.RunSummary{res.Summary})); err != nil {
			return files, err
		}
	}

	if p.wants(FormatParquet) {
		if err := writeParquet(parquetfile.TradesFile, func(path string) error {
			return parquetfile.WriteTrades(path, res.Trades)
		}); err != nil {
			return files, err
		}
		if err := writeParquet(parquetfile.DailyFile, func(path string) error {
			return parquetfile.WriteDaily(path, res.Daily)
		}); err != nil {
			return files, err
		}
		if res.Compounding {
			if err := writeParquet(parquetfile.EquityCurveFile, func(path string) error {
				return parquetfile.WriteEquityCurve(path, res.EquityCurve)
			}); err != nil {
				return files, err
			}
			if err := writeParquet(parquetfile.YearlyFile, func(path string) error {
				return parquetfile.WriteYearly(path, res.Yearly)
			}); err != nil {
				return files, err
			}
		}
	}

	if p.wants(FormatMarkdown) {
		if err := writeText(ReportFile, reporting.RenderMarkdown(report)); err != nil {
			return files, err
		}
	}

	manifest, err := json.MarshalIndent(newManifest(res, report, files), "", "  ")
	if err != nil {
		return files, fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeText(ManifestFile, string(manifest)+"\n"); err != nil {
		return files, err
	}

	return files, nil
}

func (p *Pipeline) wants(format string) bool {
	for _, f := range p.opts.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Manifest describes one run's outputs.
type Manifest struct {
	RunID            string    `json:"run_id"`
	StrategyID       string    `json:"strategy_id"`
	Compounding      bool      `json:"compounding"`
	GeneratedAt      time.Time `json:"generated_at"`
	GeneratorVersion string    `json:"generator_version"`
	DataVersion      string    `json:"data_version"`
	ResultVersion    string    `json:"result_version"`
	CommitHash       string    `json:"commit_hash"`
	ReplayCommand    string    `json:"replay_command,omitempty"`
	Trades           int       `json:"trades"`
	Entered          int       `json:"entered"`
	TotalDollarPnL   float64   `json:"total_dollar_pnl"`
	Files            []string  `json:"files"`
}

func newManifest(res *backtest.Results, report *reporting.Report, files []string) Manifest {
	rp := report.Reproducibility
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	return Manifest{
		RunID:            res.RunID,
		StrategyID:       res.StrategyID,
		Compounding:      res.Compounding,
		GeneratedAt:      report.GeneratedAt,
		GeneratorVersion: rp.GeneratorVersion,
		DataVersion:      rp.DataVersion,
		ResultVersion:    rp.ResultVersion,
		CommitHash:       rp.CommitHash,
		ReplayCommand:    rp.ReplayCommand,
		Trades:           len(res.Trades),
		Entered:          res.Summary.Entered,
		TotalDollarPnL:   res.Summary.TotalDollarPnL,
		Files:            names,
	}
}

// backendOf names the package a store comes from, e.g. "postgres" or "memory".
func backendOf(store any) string {
	name := fmt.Sprintf("%T", store)
	name = strings.TrimPrefix(name, "*")
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return name
}
