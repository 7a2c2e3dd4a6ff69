// Package main regenerates the report and CSV outputs of a stored run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"orb-lab/internal/backtest"
	"orb-lab/internal/config"
	"orb-lab/internal/domain"
	"orb-lab/internal/logging"
	"orb-lab/internal/metrics"
	"orb-lab/internal/reporting"
	"orb-lab/internal/storage"
	chstore "orb-lab/internal/storage/clickhouse"
	pgstore "orb-lab/internal/storage/postgres"
	"orb-lab/internal/strategy"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored when missing)")
	runID := flag.String("run-id", "", "Run to report on")
	list := flag.Bool("list", false, "List stored runs and exit")
	rebuild := flag.Bool("rebuild-summary", false, "Recompute and store the run summary from stored trades when it is missing")
	outputDir := flag.String("output-dir", "", "Output directory (overrides output.dir)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	flag.Parse()

	cfg, err := config.Read(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickHouseDSN = *clickhouseDSN
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if cfg.Storage.PostgresDSN == "" || cfg.Storage.ClickHouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn and --clickhouse-dsn are required")
		os.Exit(2)
	}
	if !*list && *runID == "" {
		fmt.Fprintln(os.Stderr, "Error: --run-id is required")
		os.Exit(2)
	}

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	defer closer.Close()

	ctx := context.Background()

	stores, cleanup, err := openStores(ctx, cfg.Storage)
	if err != nil {
		log.Error().Err(err).Msg("connect")
		os.Exit(1)
	}
	defer cleanup()

	switch {
	case *list:
		err = listRuns(ctx, stores.Summaries)
	case *rebuild:
		if err = rebuildSummary(ctx, stores, *runID, cfg.Backtest, log); err == nil {
			err = writeReport(ctx, stores, *runID, cfg.Output.Dir, log)
		}
	default:
		err = writeReport(ctx, stores, *runID, cfg.Output.Dir, log)
	}
	if err != nil {
		log.Error().Err(err).Msg("report failed")
		cleanup()
		closer.Close()
		os.Exit(1)
	}
}

func openStores(ctx context.Context, cfg config.Storage) (storage.ResultStores, func(), error) {
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return storage.ResultStores{}, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	conn, err := chstore.NewConn(ctx, cfg.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return storage.ResultStores{}, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := storage.ResultStores{
		Trades:      pgstore.NewTradeStore(pool),
		Yearly:      pgstore.NewYearlyResultStore(pool),
		Daily:       chstore.NewDailyPerformanceStore(conn),
		EquityCurve: chstore.NewEquityCurveStore(conn),
		Summaries:   chstore.NewRunSummaryStore(conn),
	}
	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// rebuildSummary stores a summary for a run that has trades but none stored.
func rebuildSummary(ctx context.Context, stores storage.ResultStores, runID string, bt backtest.Config, log zerolog.Logger) error {
	_, err := stores.Summaries.GetByID(ctx, runID)
	if err == nil {
		log.Info().Str("run_id", runID).Msg("summary exists, nothing to rebuild")
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	orb, err := strategy.FromConfig(bt.Config)
	if err != nil {
		return err
	}
	agg := metrics.NewAggregator(stores.Trades, stores.EquityCurve, stores.Summaries)
	s, err := agg.ComputeAndStore(ctx, runID, orb.ID(), bt.EffectiveCapital())
	if err != nil {
		return fmt.Errorf("rebuild summary: %w", err)
	}
	log.Info().Str("run_id", runID).Int("entered", s.Entered).Float64("dollar_pnl", s.TotalDollarPnL).Msg("summary rebuilt")
	return nil
}

func listRuns(ctx context.Context, summaries storage.RunSummaryStore) error {
	all, err := summaries.GetAll(ctx)
	if err != nil {
		return err
	}
	fmt.Print(reporting.RenderSummaryCSV(all))
	return nil
}

func writeReport(ctx context.Context, stores storage.ResultStores, runID, dir string, log zerolog.Logger) error {
	report, err := reporting.NewGenerator(stores).Generate(ctx, runID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return err
	}

	trades, err := stores.Trades.GetByRunID(ctx, runID)
	if err != nil {
		return err
	}
	days, err := stores.Daily.GetByRunID(ctx, runID)
	if err != nil {
		return err
	}

	files := map[string]string{
		"REPORT.md":             reporting.RenderMarkdown(report),
		"trades.csv":            reporting.RenderTradesCSV(trades),
		"daily_performance.csv": reporting.RenderDailyCSV(days),
		"summary.csv":           reporting.RenderSummaryCSV([]*domain.RunSummary{report.Summary}),
	}
	if report.Summary.Compounding {
		curve, err := stores.EquityCurve.GetByRunID(ctx, runID)
		if err != nil {
			return err
		}
		years, err := stores.Yearly.GetByRunID(ctx, runID)
		if err != nil {
			return err
		}
		files["equity_curve.csv"] = reporting.RenderEquityCSV(curve)
		files["yearly_results.csv"] = reporting.RenderYearlyCSV(years)
	}

	dir = filepath.Join(dir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	log.Info().Str("run_id", runID).Str("dir", dir).Int("files", len(files)).Msg("report written")
	return nil
}
