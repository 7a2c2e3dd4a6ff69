package pipeline

import (
	"fmt"

	"orb-lab/internal/bars"
	"orb-lab/internal/domain"
	"orb-lab/internal/reporting"
)

// SufficiencyThresholds are the minimums a universe must meet before a run is trusted.
type SufficiencyThresholds struct {
	MinTradingDays      int
	MinCandidatesPerDay float64
	MaxBadBarsPct       float64 // share of candidates whose bars do not decode, in percent
}

// DefaultThresholds accepts any non-empty universe with mostly decodable bars.
func DefaultThresholds() SufficiencyThresholds {
	return SufficiencyThresholds{
		MinTradingDays:      1,
		MinCandidatesPerDay: 1,
		MaxBadBarsPct:       10,
	}
}

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains every check of one universe.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string // data integrity errors
}

// CheckUniverse validates a loaded universe against th.
func CheckUniverse(universe []*domain.Candidate, th SufficiencyThresholds) *SufficiencyResult {
	result := &SufficiencyResult{AllPass: true}
	add := func(c SufficiencyCheck) {
		result.Checks = append(result.Checks, c)
		if !c.Pass {
			result.AllPass = false
		}
	}

	days := make(map[string]int)
	for _, c := range universe {
		days[c.DateKey()]++
	}

	// Check 1: distinct trading days
	add(SufficiencyCheck{
		Name:      "Trading days",
		Threshold: fmt.Sprintf(">= %d", th.MinTradingDays),
		Actual:    fmt.Sprintf("%d", len(days)),
		Pass:      len(days) >= th.MinTradingDays,
	})

	// Check 2: average candidates per day
	var perDay float64
	if len(days) > 0 {
		perDay = float64(len(universe)) / float64(len(days))
	}
	add(SufficiencyCheck{
		Name:      "Candidates per day",
		Threshold: fmt.Sprintf(">= %.1f", th.MinCandidatesPerDay),
		Actual:    fmt.Sprintf("%.1f", perDay),
		Pass:      perDay >= th.MinCandidatesPerDay,
	})

	// Check 3: decodable bar payloads
	var bad int
	for _, c := range universe {
		if b, err := bars.Decode(c.Bars); err != nil || len(b) == 0 {
			bad++
		}
	}
	var badPct float64
	if len(universe) > 0 {
		badPct = float64(bad) / float64(len(universe)) * 100
	}
	add(SufficiencyCheck{
		Name:      "Undecodable bars",
		Threshold: fmt.Sprintf("<= %.1f%%", th.MaxBadBarsPct),
		Actual:    fmt.Sprintf("%.1f%% (%d)", badPct, bad),
		Pass:      badPct <= th.MaxBadBarsPct,
	})

	// Check 4: duplicate (trade_date, ticker)
	dupErrors := duplicateCandidates(universe)
	add(SufficiencyCheck{
		Name:      "Duplicate candidates",
		Threshold: "== 0",
		Actual:    fmt.Sprintf("%d", len(dupErrors)),
		Pass:      len(dupErrors) == 0,
	})
	result.Errors = append(result.Errors, dupErrors...)

	return result
}

func duplicateCandidates(universe []*domain.Candidate) []string {
	seen := make(map[string]struct{}, len(universe))
	var errs []string
	for _, c := range universe {
		key := c.DateKey() + "|" + c.Ticker
		if _, ok := seen[key]; ok {
			errs = append(errs, fmt.Sprintf("duplicate candidate %s %s", c.DateKey(), c.Ticker))
			continue
		}
		seen[key] = struct{}{}
	}
	return errs
}

// toDataQuality converts a SufficiencyResult to its report section.
func toDataQuality(result *SufficiencyResult) *reporting.DataQualitySection {
	checks := make([]reporting.QualityCheckRow, len(result.Checks))
	for i, c := range result.Checks {
		checks[i] = reporting.QualityCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return &reporting.DataQualitySection{
		Checks:          checks,
		IntegrityErrors: result.Errors,
		AllChecksPassed: result.AllPass,
	}
}
