package backtest

import (
	"errors"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"orb-lab/internal/domain"
	"orb-lab/internal/sizing"
	"orb-lab/internal/strategy"
)

// ErrInvalidConfig is returned when a run configuration fails validation.
var ErrInvalidConfig = errors.New("invalid backtest config")

// Config is the immutable configuration of one run.
type Config struct {
	strategy.Config `yaml:",inline"`

	// Universe filters
	MinATR     float64 `yaml:"min_atr" validate:"gte=0"`
	MinVolume  float64 `yaml:"min_volume" validate:"gte=0"`
	TopN       int     `yaml:"top_n" default:"20" validate:"gte=1"`
	SideFilter string  `yaml:"side_filter" default:"both" validate:"oneof=long short both"`

	// Sizing
	Capital         float64 `yaml:"capital" validate:"gte=0"` // fixed mode; 0 means initial_capital
	InitialCapital  float64 `yaml:"initial_capital" default:"25000" validate:"gt=0"`
	Leverage        float64 `yaml:"leverage" default:"1" validate:"gt=0"`
	Compound        bool    `yaml:"compound"`
	RiskPerTrade    float64 `yaml:"risk_per_trade" validate:"gte=0,lte=1"`
	DailyRiskTarget float64 `yaml:"daily_risk_target" validate:"gte=0,lte=1"`

	// Simulation assumptions
	SameBarExit         bool    `yaml:"same_bar_exit"`
	IntradayCompounding bool    `yaml:"intraday_compounding"`
	EquityFloor         float64 `yaml:"equity_floor" default:"1" validate:"gt=0"`
	StopOnRuin          bool    `yaml:"stop_on_ruin"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("backtest defaults: %v", err))
	}
	return cfg
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Compound && c.EffectiveRiskPerTrade() <= 0 {
		return fmt.Errorf("%w: compound requires risk_per_trade or daily_risk_target", ErrInvalidConfig)
	}
	return nil
}

// EffectiveCapital returns the fixed-mode position size.
func (c Config) EffectiveCapital() float64 {
	if c.Capital > 0 {
		return c.Capital
	}
	return c.InitialCapital
}

// EffectiveRiskPerTrade returns risk_per_trade, or daily_risk_target spread over top_n.
func (c Config) EffectiveRiskPerTrade() float64 {
	if c.RiskPerTrade > 0 {
		return c.RiskPerTrade
	}
	return sizing.RiskPerTrade(c.DailyRiskTarget, c.TopN)
}

// Sizer returns the position sizer selected by the configuration.
func (c Config) Sizer() sizing.Sizer {
	if c.Compound {
		return sizing.NewRisk(c.EffectiveRiskPerTrade(), c.Leverage)
	}
	return sizing.NewFixed(c.EffectiveCapital())
}

// allowsSide reports whether the side filter lets dir through.
func (c Config) allowsSide(dir domain.Direction) bool {
	switch c.SideFilter {
	case domain.SideLong:
		return dir == domain.DirectionLong
	case domain.SideShort:
		return dir == domain.DirectionShort
	default:
		return dir != domain.DirectionNone
	}
}
