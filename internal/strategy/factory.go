package strategy

import (
	"errors"
	"fmt"
)

// Factory errors
var (
	ErrUnknownStopMode   = errors.New("unknown stop mode")
	ErrInvalidATRScale   = errors.New("atr stop requires a positive stop_atr_scale")
	ErrNegativeThreshold = errors.New("min_rvol must not be negative")
)

// FromConfig creates the ORB strategy for a run.
// Invalid configuration is reported before any candidate is processed.
func FromConfig(cfg Config) (*ORB, error) {
	stop, err := stopFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.MinRVOL.uniform < 0 || cfg.MinRVOL.long < 0 || cfg.MinRVOL.short < 0 {
		return nil, ErrNegativeThreshold
	}

	return NewORB(stop, cfg.MinRVOL), nil
}

// stopFromConfig creates the stop policy named by cfg.StopMode.
func stopFromConfig(cfg Config) (StopPolicy, error) {
	switch cfg.StopMode {
	case StopModeOR:
		return ORStop{}, nil
	case StopModeATR:
		if cfg.StopATRScale <= 0 {
			return nil, ErrInvalidATRScale
		}
		return ATRStop{Scale: cfg.StopATRScale}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStopMode, cfg.StopMode)
	}
}
