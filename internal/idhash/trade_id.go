package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(run_id|strategy_id|candidate_id|rvol_rank)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	runID string,
	strategyID string,
	candidateID string,
	rvolRank int,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		runID,
		strategyID,
		candidateID,
		rvolRank,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
