package sizing

import (
	"errors"
	"math"
	"testing"
)

func TestFixed_Size(t *testing.T) {
	s := NewFixed(25000)

	pos, err := s.Size(1, 50, 49)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.Size != 25000 {
		t.Errorf("expected 25000, got %v", pos.Size)
	}
	if !pos.ApplyLeverage {
		t.Error("fixed sizing must let the simulator apply leverage")
	}
	if s.Compounding() {
		t.Error("fixed sizer is not compounding")
	}
}

func TestRisk_Size(t *testing.T) {
	s := NewRisk(0.01, 4)

	// 1% of 100k = 1000 at risk, stop 2% away -> 50k position.
	pos, err := s.Size(100000, 50, 49)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(pos.Size-50000) > 1e-6 {
		t.Errorf("expected 50000, got %v", pos.Size)
	}
	if pos.RiskAmount != 1000 {
		t.Errorf("expected risk 1000, got %v", pos.RiskAmount)
	}
	if pos.ApplyLeverage {
		t.Error("compounding size must not be levered again")
	}
	if pos.Capped {
		t.Error("did not expect cap")
	}
}

func TestRisk_SizeCapped(t *testing.T) {
	s := NewRisk(0.01, 4)

	// stop 0.1% away would need 1M; cap at 400k.
	pos, err := s.Size(100000, 100, 99.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.Size != 400000 || !pos.Capped {
		t.Errorf("expected capped 400000, got %v capped=%v", pos.Size, pos.Capped)
	}
}

func TestRisk_Errors(t *testing.T) {
	s := NewRisk(0.01, 4)

	tests := []struct {
		name   string
		equity float64
		entry  float64
		stop   float64
		want   error
	}{
		{"zero entry", 1000, 0, 1, ErrInvalidEntry},
		{"negative entry", 1000, -5, 1, ErrInvalidEntry},
		{"stop equals entry", 1000, 10, 10, ErrZeroRisk},
		{"no equity", 0, 10, 9, ErrInvalidEquity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Size(tt.equity, tt.entry, tt.stop)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRiskPerTrade(t *testing.T) {
	if got := RiskPerTrade(0.05, 5); math.Abs(got-0.01) > 1e-12 {
		t.Errorf("expected 0.01, got %v", got)
	}
	if got := RiskPerTrade(0.05, 0); got != 0 {
		t.Errorf("expected 0 for top_n 0, got %v", got)
	}
}

func TestShares(t *testing.T) {
	tests := []struct {
		name     string
		exposure float64
		entry    float64
		max      int
		want     int
	}{
		{"floors", 1000, 30, 0, 33},
		{"capped", 100000, 10, 2500, 2500},
		{"at least one", 5, 30, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Shares(tt.exposure, tt.entry, tt.max)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}

	if _, err := Shares(1000, 0, 0); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("expected ErrInvalidEntry, got %v", err)
	}
}
