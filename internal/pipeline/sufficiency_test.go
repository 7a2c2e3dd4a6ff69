package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckUniverse_Pass(t *testing.T) {
	result := CheckUniverse(SampleUniverse(startDate, 5, nil), DefaultThresholds())

	require.Len(t, result.Checks, 4)
	assert.True(t, result.AllPass)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "5", result.Checks[0].Actual)
	assert.Equal(t, "5.0", result.Checks[1].Actual)
}

func TestCheckUniverse_Failures(t *testing.T) {
	universe := SampleUniverse(startDate, 2, []string{"AAA", "BBB"})
	universe[0].Bars = []byte("{")
	dup := *universe[1]
	universe = append(universe, &dup)

	th := DefaultThresholds()
	th.MinTradingDays = 3

	result := CheckUniverse(universe, th)
	assert.False(t, result.AllPass)

	byName := make(map[string]SufficiencyCheck)
	for _, c := range result.Checks {
		byName[c.Name] = c
	}
	assert.False(t, byName["Trading days"].Pass)
	assert.True(t, byName["Candidates per day"].Pass)
	assert.False(t, byName["Undecodable bars"].Pass)
	assert.Equal(t, "20.0% (1)", byName["Undecodable bars"].Actual)
	assert.False(t, byName["Duplicate candidates"].Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "BBB")
}

func TestToDataQuality(t *testing.T) {
	dq := toDataQuality(&SufficiencyResult{
		Checks:  []SufficiencyCheck{{Name: "x", Threshold: ">= 1", Actual: "0", Pass: false}},
		AllPass: false,
		Errors:  []string{"bad"},
	})
	require.Len(t, dq.Checks, 1)
	assert.Equal(t, "x", dq.Checks[0].Name)
	assert.False(t, dq.AllChecksPassed)
	assert.Equal(t, []string{"bad"}, dq.IntegrityErrors)
}
