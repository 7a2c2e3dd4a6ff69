package parquetfile

import (
	"sort"
	"time"

	"orb-lab/internal/domain"
)

const secondsPerDay = 24 * 60 * 60

// toDays converts a calendar date to the Parquet DATE representation (days since epoch).
func toDays(t time.Time) int32 {
	return int32(domain.NormalizeDate(t).Unix() / secondsPerDay)
}

func fromDays(days int32) time.Time {
	return time.Unix(int64(days)*secondsPerDay, 0).UTC()
}

// toMillis returns nil for a nil time.
func toMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}

func sortByDate(candidates []*domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].TradeDate.Before(candidates[j].TradeDate)
	})
}
