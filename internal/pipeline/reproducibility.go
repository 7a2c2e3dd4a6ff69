package pipeline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"orb-lab/internal/domain"
)

// GeneratorVersion identifies the output layout.
const GeneratorVersion = "1.0.0"

// universeVersion hashes the universe rows a run consumed.
func universeVersion(universe []*domain.Candidate) string {
	parts := make([]string, len(universe))
	for i, c := range universe {
		bars := sha256.Sum256(c.Bars)
		parts[i] = fmt.Sprintf("%s|%s|%d|%.6f|%.6f|%.6f|%x",
			c.DateKey(), c.Ticker, c.Direction, c.RVOL, c.ATR14, c.AvgVolume14, bars[:8])
	}
	sort.Strings(parts)
	return shortHash("UNIVERSE", parts)
}

// resultVersion hashes trade ids and their P&L.
func resultVersion(trades []*domain.SimulatedTrade) string {
	parts := make([]string, len(trades))
	for i, t := range trades {
		parts[i] = fmt.Sprintf("%s|%s|%.6f", t.TradeID, t.Outcome, t.DollarPnL)
	}
	sort.Strings(parts)
	return shortHash("TRADES", parts)
}

func shortHash(section string, parts []string) string {
	h := sha256.New()
	h.Write([]byte(section + "\n"))
	h.Write([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// gitCommitHash returns current git commit hash or "unknown" if not in git repo.
func gitCommitHash() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "unknown"
	}
	return strings.TrimSpace(out.String())
}
