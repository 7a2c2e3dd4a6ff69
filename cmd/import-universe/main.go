// Package main loads a universe parquet file into the Postgres universe table,
// or writes a synthetic universe file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"orb-lab/internal/config"
	"orb-lab/internal/domain"
	"orb-lab/internal/logging"
	"orb-lab/internal/pipeline"
	"orb-lab/internal/storage"
	"orb-lab/internal/storage/migrations"
	"orb-lab/internal/storage/parquetfile"
	pgstore "orb-lab/internal/storage/postgres"
)

// batchSize is the number of candidates inserted per transaction.
const batchSize = 5000

func main() {
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored when missing)")
	input := flag.String("input", "", "Universe parquet file to import")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	migrate := flag.Bool("migrate", true, "Apply migrations before importing")
	writeFixtures := flag.String("write-fixtures", "", "Write a synthetic universe to this parquet file and exit")
	fixtureStart := flag.String("fixture-start", "2024-01-02", "First date of the synthetic universe")
	fixtureDays := flag.Int("fixture-days", 60, "Trading days of the synthetic universe")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	cfg, err := config.Read("", *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	cfg.Logging.Level = *logLevel
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	defer closer.Close()

	if *writeFixtures != "" {
		start, err := time.Parse(domain.DateLayout, *fixtureStart)
		if err != nil {
			log.Error().Err(err).Msg("parse --fixture-start")
			os.Exit(2)
		}
		universe := pipeline.SampleUniverse(start, *fixtureDays, nil)
		if err := parquetfile.WriteUniverse(*writeFixtures, universe); err != nil {
			log.Error().Err(err).Msg("write fixtures")
			os.Exit(1)
		}
		log.Info().Str("path", *writeFixtures).Int("rows", len(universe)).Msg("fixtures written")
		return
	}

	if *input == "" || cfg.Storage.PostgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --input and --postgres-dsn are required")
		os.Exit(2)
	}

	if err := run(context.Background(), *input, cfg.Storage.PostgresDSN, *migrate, log); err != nil {
		log.Error().Err(err).Msg("import failed")
		closer.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, input, dsn string, migrate bool, log zerolog.Logger) error {
	r, err := parquetfile.OpenUniverse(input)
	if err != nil {
		return err
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
	}

	store := pgstore.NewUniverseStore(pool)
	all := r.All()
	start := time.Now()

	var inserted, skipped int
	for i := 0; i < len(all); i += batchSize {
		end := min(i+batchSize, len(all))
		batch := all[i:end]

		err := store.InsertBulk(ctx, batch)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			// Batch already imported in an earlier run
			skipped += len(batch)
			log.Warn().Int("from", i).Int("to", end).Msg("batch contains existing candidates, skipped")
		case err != nil:
			return fmt.Errorf("insert rows %d-%d: %w", i, end, err)
		default:
			inserted += len(batch)
		}
	}

	log.Info().
		Str("path", r.Path()).
		Int("inserted", inserted).
		Int("skipped", skipped).
		Dur("elapsed", time.Since(start)).
		Msg("universe imported")
	return nil
}
