// Package main applies the embedded Postgres and ClickHouse migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"orb-lab/internal/config"
	"orb-lab/internal/logging"
	"orb-lab/internal/storage/migrations"
	pgstore "orb-lab/internal/storage/postgres"
)

func main() {
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored when missing)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	cfg, err := config.Read("", *envFile)
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
	if cfg.Storage.PostgresDSN == "" && cfg.Storage.ClickHouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn or --clickhouse-dsn is required")
		os.Exit(2)
	}

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to postgres")
		}
		err = migrations.RunPostgresMigrations(ctx, pool)
		pool.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("postgres migrations")
		}
		log.Info().Msg("postgres migrations applied")
	}

	if dsn := cfg.Storage.ClickHouseDSN; dsn != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("clickhouse migrations")
		}
		conn.Close()
		log.Info().Msg("clickhouse migrations applied")
	}
}
