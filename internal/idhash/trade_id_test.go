package idhash

import (
	"testing"
)

func TestComputeTradeID(t *testing.T) {
	tests := []struct {
		name        string
		runID       string
		strategyID  string
		candidateID string
		rank        int
		wantLen     int // hash length should be 64
	}{
		{
			name:        "or stop",
			runID:       "5b0e7c1e-4f7a-4b8e-9a55-0f6c3a1d2e11",
			strategyID:  "ORB_or",
			candidateID: "abc123def456",
			rank:        1,
			wantLen:     64,
		},
		{
			name:        "atr stop",
			runID:       "5b0e7c1e-4f7a-4b8e-9a55-0f6c3a1d2e11",
			strategyID:  "ORB_atr10",
			candidateID: "xyz789ghi012",
			rank:        20,
			wantLen:     64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTradeID(tt.runID, tt.strategyID, tt.candidateID, tt.rank)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeTradeID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Same inputs, same output
			got2 := ComputeTradeID(tt.runID, tt.strategyID, tt.candidateID, tt.rank)
			if got != got2 {
				t.Errorf("ComputeTradeID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeTradeID_DifferentInputs(t *testing.T) {
	base := ComputeTradeID("run", "strategy", "candidate", 1)

	if base == ComputeTradeID("other_run", "strategy", "candidate", 1) {
		t.Error("Different run should produce different hash")
	}
	if base == ComputeTradeID("run", "other_strategy", "candidate", 1) {
		t.Error("Different strategy should produce different hash")
	}
	if base == ComputeTradeID("run", "strategy", "other_candidate", 1) {
		t.Error("Different candidate should produce different hash")
	}
	if base == ComputeTradeID("run", "strategy", "candidate", 2) {
		t.Error("Different rank should produce different hash")
	}
}
