package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb-lab/internal/bars"
	"orb-lab/internal/domain"
)

func TestSampleUniverse_SkipsWeekends(t *testing.T) {
	// 2024-01-05 is a Friday
	u := SampleUniverse(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 2, []string{"AAA"})
	require.Len(t, u, 2)
	assert.Equal(t, time.Friday, u[0].TradeDate.Weekday())
	assert.Equal(t, time.Monday, u[1].TradeDate.Weekday())
}

func TestSampleUniverse_Decodable(t *testing.T) {
	u := SampleUniverse(startDate, 4, nil)
	require.Len(t, u, 4*len(SampleTickers))

	directions := make(map[domain.Direction]int)
	for _, c := range u {
		b, err := bars.Decode(c.Bars)
		require.NoError(t, err, c.Ticker)
		assert.Len(t, b, 12)
		assert.Equal(t, domain.SessionOpen, b[0].TimeOfDay)
		assert.True(t, c.HasOpeningRange())
		assert.Greater(t, c.RVOL, 0.0)
		directions[c.Direction]++
	}
	assert.Positive(t, directions[domain.DirectionLong])
	assert.Positive(t, directions[domain.DirectionShort])
}

func TestSampleUniverse_Deterministic(t *testing.T) {
	assert.Equal(t, SampleUniverse(startDate, 3, nil), SampleUniverse(startDate, 3, nil))
}
