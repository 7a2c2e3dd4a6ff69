package strategy

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"orb-lab/internal/domain"
)

// Threshold is either a single value for both sides or a per-side pair.
// The zero value is Uniform(0), which admits everything.
type Threshold struct {
	perSide bool
	uniform float64
	long    float64
	short   float64
}

// Uniform returns a threshold applied to both sides.
func Uniform(v float64) Threshold {
	return Threshold{uniform: v}
}

// PerSide returns a threshold with separate long and short values.
func PerSide(long, short float64) Threshold {
	return Threshold{perSide: true, long: long, short: short}
}

// IsPerSide reports which variant is held.
func (t Threshold) IsPerSide() bool {
	return t.perSide
}

// Resolve returns the per-candidate lookup. Called once per run.
func (t Threshold) Resolve() func(domain.Direction) float64 {
	if !t.perSide {
		v := t.uniform
		return func(domain.Direction) float64 { return v }
	}
	long, short := t.long, t.short
	return func(d domain.Direction) float64 {
		if d == domain.DirectionShort {
			return short
		}
		return long
	}
}

// String implements fmt.Stringer.
func (t Threshold) String() string {
	if t.perSide {
		return fmt.Sprintf("long=%g,short=%g", t.long, t.short)
	}
	return fmt.Sprintf("%g", t.uniform)
}

// UnmarshalYAML accepts a scalar (uniform) or a {long, short} mapping.
func (t *Threshold) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("threshold: %w", err)
		}
		*t = Uniform(v)
		return nil
	case yaml.MappingNode:
		var m struct {
			Long  *float64 `yaml:"long"`
			Short *float64 `yaml:"short"`
		}
		if err := node.Decode(&m); err != nil {
			return fmt.Errorf("threshold: %w", err)
		}
		if m.Long == nil || m.Short == nil {
			return fmt.Errorf("threshold: per-side form requires both long and short")
		}
		*t = PerSide(*m.Long, *m.Short)
		return nil
	default:
		return fmt.Errorf("threshold: unsupported yaml node kind %d", node.Kind)
	}
}

// MarshalYAML writes the same shape UnmarshalYAML reads.
func (t Threshold) MarshalYAML() (any, error) {
	if t.perSide {
		return map[string]float64{"long": t.long, "short": t.short}, nil
	}
	return t.uniform, nil
}
