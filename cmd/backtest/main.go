// Package main runs one opening-range-breakout backtest: universe in, results
// persisted and exported.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"orb-lab/internal/backtest"
	"orb-lab/internal/config"
	"orb-lab/internal/logging"
	"orb-lab/internal/observability"
	"orb-lab/internal/pipeline"
)

type flags struct {
	configPath    string
	envFile       string
	universe      string
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	useFixtures   bool
	fixtureDays   int
	outputDir     string
	from          string
	to            string
	metricsAddr   string
	logLevel      string
	strict        bool
	compound      bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to YAML config")
	flag.StringVar(&f.envFile, "env-file", ".env", "Path to .env file (ignored when missing)")
	flag.StringVar(&f.universe, "universe", "", "Universe parquet file (overrides universe.path)")
	flag.StringVar(&f.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	flag.StringVar(&f.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string")
	flag.BoolVar(&f.useMemory, "use-memory", false, "Persist results in memory only")
	flag.BoolVar(&f.useFixtures, "use-fixtures", false, "Run on a synthetic universe instead of a file or database")
	flag.IntVar(&f.fixtureDays, "fixture-days", 60, "Trading days generated by --use-fixtures")
	flag.StringVar(&f.outputDir, "output-dir", "", "Output directory (overrides output.dir)")
	flag.StringVar(&f.from, "from", "", "First trade date, YYYY-MM-DD")
	flag.StringVar(&f.to, "to", "", "Last trade date, YYYY-MM-DD")
	flag.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	flag.StringVar(&f.logLevel, "log-level", "", "Log level (overrides logging.level)")
	flag.BoolVar(&f.strict, "strict", false, "Fail when a data sufficiency check fails")
	flag.BoolVar(&f.compound, "compound", false, "Enable compounding (overrides backtest.compound)")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("cancelling backtest")
		cancel()
	}()

	if err := run(ctx, cfg, f, log); err != nil {
		log.Error().Err(err).Msg("backtest failed")
		closer.Close()
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Read(f.configPath, f.envFile)
	if err != nil {
		return nil, err
	}

	if f.universe != "" {
		cfg.Universe.Source = "parquet"
		cfg.Universe.Path = f.universe
	}
	if f.useFixtures {
		cfg.Universe.Source = "memory"
	}
	if f.postgresDSN != "" {
		cfg.Storage.PostgresDSN = f.postgresDSN
	}
	if f.clickhouseDSN != "" {
		cfg.Storage.ClickHouseDSN = f.clickhouseDSN
	}
	if f.useMemory {
		cfg.Storage.UseMemory = true
	}
	if f.outputDir != "" {
		cfg.Output.Dir = f.outputDir
	}
	if f.from != "" {
		cfg.Universe.From = f.from
	}
	if f.to != "" {
		cfg.Universe.To = f.to
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Addr = f.metricsAddr
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.compound {
		cfg.Backtest.Compound = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, f flags, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(cfg.Metrics.Namespace, reg)

	if cfg.Metrics.Addr != "" {
		srv := startMetricsServer(cfg.Metrics.Addr, reg, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	from, to, err := cfg.Universe.Range()
	if err != nil {
		return err
	}

	universe, err := openUniverse(ctx, cfg, f.fixtureDays, from, log)
	if err != nil {
		return err
	}
	defer universe.Close()

	stores, err := openResultStores(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	runner, err := backtest.NewRunner(cfg.Backtest, backtest.RunnerOptions{
		Logger:  log,
		Metrics: m,
	})
	if err != nil {
		return err
	}

	p, err := pipeline.New(pipeline.Options{
		Universe:      universe.reader,
		Runner:        runner,
		Stores:        stores.ResultStores,
		From:          from,
		To:            to,
		OutputDir:     cfg.Output.Dir,
		Formats:       cfg.Output.Formats,
		Thresholds:    pipeline.DefaultThresholds(),
		Strict:        f.strict,
		ReplayCommand: strings.Join(os.Args, " "),
		Metrics:       m,
		Logger:        log,
	})
	if err != nil {
		return err
	}

	out, err := p.Run(ctx)
	if err != nil {
		return err
	}

	s := out.Results.Summary
	fmt.Printf("run_id=%s candidates=%d entered=%d win_rate=%.2f%% dollar_pnl=%.2f\n",
		out.Results.RunID, s.Candidates, s.Entered, s.WinRate*100, s.TotalDollarPnL)
	for _, path := range out.Files {
		fmt.Printf("  - %s\n", path)
	}
	return nil
}

func startMetricsServer(addr string, reg *prometheus.Registry, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(reg))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server")
		}
	}()
	return srv
}
