package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"orb-lab/internal/config"
	"orb-lab/internal/pipeline"
	"orb-lab/internal/storage"
	chstore "orb-lab/internal/storage/clickhouse"
	"orb-lab/internal/storage/memory"
	"orb-lab/internal/storage/migrations"
	"orb-lab/internal/storage/parquetfile"
	pgstore "orb-lab/internal/storage/postgres"
)

// universeSource is the opened universe reader and whatever it holds open.
type universeSource struct {
	reader storage.UniverseReader
	close  func()
}

func (u *universeSource) Close() {
	if u.close != nil {
		u.close()
	}
}

// openUniverse opens the configured universe source.
func openUniverse(ctx context.Context, cfg *config.Config, fixtureDays int, from time.Time, log zerolog.Logger) (*universeSource, error) {
	switch cfg.Universe.Source {
	case "memory":
		start := from
		if start.Equal(config.MinDate) {
			start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		}
		store := memory.NewUniverseStore()
		if err := store.InsertBulk(ctx, pipeline.SampleUniverse(start, fixtureDays, nil)); err != nil {
			return nil, fmt.Errorf("load fixtures: %w", err)
		}
		log.Info().Int("days", fixtureDays).Msg("using synthetic universe")
		return &universeSource{reader: store}, nil

	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		log.Info().Msg("reading universe from postgres")
		return &universeSource{reader: pgstore.NewUniverseStore(pool), close: pool.Close}, nil

	default:
		r, err := parquetfile.OpenUniverse(cfg.Universe.Path)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", r.Path()).Int("rows", r.Len()).Msg("universe file loaded")
		return &universeSource{reader: r}, nil
	}
}

// resultStores are the result stores of one run plus their connections.
type resultStores struct {
	storage.ResultStores
	closers []func()
}

func (s *resultStores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openResultStores wires Postgres for trades and yearly results and ClickHouse
// for daily rows, the equity curve and run summaries. A backend without a DSN
// is left out; --use-memory replaces both.
func openResultStores(ctx context.Context, cfg config.Storage, log zerolog.Logger) (*resultStores, error) {
	if cfg.UseMemory {
		return &resultStores{ResultStores: storage.ResultStores{
			Trades:      memory.NewTradeStore(),
			Daily:       memory.NewDailyPerformanceStore(),
			EquityCurve: memory.NewEquityCurveStore(),
			Yearly:      memory.NewYearlyResultStore(),
			Summaries:   memory.NewRunSummaryStore(),
		}}, nil
	}

	s := &resultStores{}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)

		if cfg.Migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				s.Close()
				return nil, err
			}
		}
		s.Trades = pgstore.NewTradeStore(pool)
		s.Yearly = pgstore.NewYearlyResultStore(pool)
	}

	if cfg.ClickHouseDSN != "" {
		var (
			conn *chstore.Conn
			err  error
		)
		if cfg.Migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickHouseDSN)
		}
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })

		s.Daily = chstore.NewDailyPerformanceStore(conn)
		s.EquityCurve = chstore.NewEquityCurveStore(conn)
		s.Summaries = chstore.NewRunSummaryStore(conn)
	}

	if len(s.closers) == 0 {
		log.Warn().Msg("no result database configured, writing files only")
	}
	return s, nil
}
