// Package config loads the backtest command configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"orb-lab/internal/backtest"
	"orb-lab/internal/domain"
	"orb-lab/internal/logging"
)

// ErrInvalid is returned when the loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// Environment variables that override file values.
const (
	EnvPostgresDSN   = "ORB_POSTGRES_DSN"
	EnvClickHouseDSN = "ORB_CLICKHOUSE_DSN"
	EnvLogLevel      = "ORB_LOG_LEVEL"
	EnvOutputDir     = "ORB_OUTPUT_DIR"
	EnvUniversePath  = "ORB_UNIVERSE_PATH"
)

// Output formats.
const (
	FormatCSV      = "csv"
	FormatParquet  = "parquet"
	FormatMarkdown = "markdown"
)

// Config is the full configuration of cmd/backtest.
type Config struct {
	Backtest backtest.Config `yaml:"backtest"`
	Universe Universe        `yaml:"universe"`
	Storage  Storage         `yaml:"storage"`
	Output   Output          `yaml:"output"`
	Metrics  Metrics         `yaml:"metrics"`
	Logging  logging.Config  `yaml:"logging"`
}

// Universe selects where candidates are read from and which dates are run.
type Universe struct {
	Source string `yaml:"source" default:"parquet" validate:"oneof=parquet postgres memory"`
	Path   string `yaml:"path" validate:"required_if=Source parquet"`
	From   string `yaml:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `yaml:"to" validate:"omitempty,datetime=2006-01-02"`
}

// Storage holds database connections for result persistence. Empty DSNs disable a backend.
type Storage struct {
	PostgresDSN   string `yaml:"postgres_dsn" validate:"omitempty,url"`
	ClickHouseDSN string `yaml:"clickhouse_dsn" validate:"omitempty,url"`
	UseMemory     bool   `yaml:"use_memory"`
	Migrate       bool   `yaml:"migrate" default:"true"`
}

// Output controls the files written after a run.
type Output struct {
	Dir     string   `yaml:"dir" default:"out"`
	Formats []string `yaml:"formats" default:"[\"csv\",\"parquet\",\"markdown\"]" validate:"dive,oneof=csv parquet markdown"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace" default:"orb_lab"`
}

var validate = validator.New()

// Default returns a Config with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads an optional .env file, the YAML file at path (may be empty) and
// environment overrides, then validates the result.
func Load(path string, envFiles ...string) (*Config, error) {
	c, err := Read(path, envFiles...)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Read is Load without validation, for callers that apply further overrides.
func Read(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	c.applyEnv()
	return c, nil
}

// loadEnvFiles loads the given .env files, or ./.env when none are given.
// Missing files are ignored.
func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv(EnvClickHouseDSN); v != "" {
		c.Storage.ClickHouseDSN = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv(EnvUniversePath); v != "" {
		c.Universe.Path = v
	}
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Backtest.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Universe.Source == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: universe source postgres requires storage.postgres_dsn", ErrInvalid)
	}
	from, to, err := c.Universe.Range()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: universe.to %s is before universe.from %s", ErrInvalid, c.Universe.To, c.Universe.From)
	}
	return nil
}

// Unbounded range ends used when from/to are not set.
var (
	MinDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	MaxDate = time.Date(2999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Range returns the inclusive date range of the run.
func (u Universe) Range() (from, to time.Time, err error) {
	from, to = MinDate, MaxDate
	if u.From != "" {
		if from, err = time.Parse(domain.DateLayout, u.From); err != nil {
			return from, to, fmt.Errorf("parse universe.from: %w", err)
		}
	}
	if u.To != "" {
		if to, err = time.Parse(domain.DateLayout, u.To); err != nil {
			return from, to, fmt.Errorf("parse universe.to: %w", err)
		}
	}
	return from, to, nil
}

// Wants reports whether the output format is enabled.
func (o Output) Wants(format string) bool {
	for _, f := range o.Formats {
		if f == format {
			return true
		}
	}
	return false
}
