package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"orb-lab/internal/domain"
)

// ComputeCandidateID computes a deterministic candidate_id using SHA256.
// Formula: SHA256(trade_date|TICKER)
// Returns hex-encoded hash (64 characters).
func ComputeCandidateID(tradeDate time.Time, ticker string) string {
	data := fmt.Sprintf("%s|%s",
		domain.NormalizeDate(tradeDate).Format(domain.DateLayout),
		strings.ToUpper(strings.TrimSpace(ticker)),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
