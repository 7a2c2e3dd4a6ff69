// Package bars decodes stored intraday-bar payloads into chronological bar tables.
package bars

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"orb-lab/internal/domain"
)

// Decode errors. Callers treat both as a skippable candidate.
var (
	ErrEmptyPayload     = errors.New("empty bar payload")
	ErrMalformedPayload = errors.New("malformed bar payload")
)

// errNullPrice marks a row with a null price field. Such rows are dropped.
var errNullPrice = errors.New("null price")

// exchange is the exchange-local location. Naive datetimes are interpreted here.
var exchange = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// tzdata missing on the host: fall back to a fixed EST offset.
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// Location returns the exchange-local time zone used for TimeOfDay.
func Location() *time.Location {
	return exchange
}

// naiveLayouts are accepted datetime layouts without zone information.
var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// Decode converts a bar payload into bars sorted by time.
// Accepted forms:
//   - JSON array of objects with datetime/open/high/low/close/volume (or t/o/h/l/c/v)
//   - JSON array of 6-tuples [datetime, open, high, low, close, volume]
//   - either of the above encoded again as a JSON string
//
// Duplicate timestamps keep the first occurrence. A null volume reads as 0 and a
// row with a null open, high, low or close is dropped; a payload left with no
// rows is empty.
func Decode(payload []byte) ([]domain.Bar, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil, ErrEmptyPayload
	}

	// Double-encoded payload
	if payload[0] == '"' {
		var inner string
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return Decode([]byte(inner))
	}

	var rows []any
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyPayload
	}

	result := make([]domain.Bar, 0, len(rows))
	for i, row := range rows {
		var (
			bar domain.Bar
			err error
		)
		switch v := row.(type) {
		case []any:
			bar, err = fromTuple(v)
		case map[string]any:
			bar, err = fromRecord(v)
		default:
			err = fmt.Errorf("unexpected row type %T", row)
		}
		if errors.Is(err, errNullPrice) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedPayload, i, err)
		}
		result = append(result, bar)
	}
	if len(result) == 0 {
		return nil, ErrEmptyPayload
	}

	return normalize(result), nil
}

// fromTuple parses [datetime, open, high, low, close, volume].
func fromTuple(v []any) (domain.Bar, error) {
	if len(v) != 6 {
		return domain.Bar{}, fmt.Errorf("tuple has %d fields, want 6", len(v))
	}
	ts, err := parseTime(v[0])
	if err != nil {
		return domain.Bar{}, err
	}
	vals := make([]float64, 5)
	for i := range vals {
		f, err := field(v[i+1], i == 4)
		if err != nil {
			return domain.Bar{}, err
		}
		vals[i] = f
	}
	return newBar(ts, vals[0], vals[1], vals[2], vals[3], vals[4]), nil
}

// fromRecord parses a bar object.
func fromRecord(m map[string]any) (domain.Bar, error) {
	raw, ok := pick(m, "datetime", "timestamp", "t")
	if !ok {
		return domain.Bar{}, errors.New("missing datetime")
	}
	ts, err := parseTime(raw)
	if err != nil {
		return domain.Bar{}, err
	}

	keys := [][]string{
		{"open", "o"},
		{"high", "h"},
		{"low", "l"},
		{"close", "c"},
		{"volume", "v"},
	}
	vals := make([]float64, len(keys))
	for i, names := range keys {
		raw, ok := lookup(m, names...)
		if !ok {
			return domain.Bar{}, fmt.Errorf("missing %s", names[0])
		}
		f, err := field(raw, names[0] == "volume")
		if err != nil {
			return domain.Bar{}, fmt.Errorf("%s: %w", names[0], err)
		}
		vals[i] = f
	}
	return newBar(ts, vals[0], vals[1], vals[2], vals[3], vals[4]), nil
}

func pick(m map[string]any, names ...string) (any, bool) {
	for _, name := range names {
		if v, ok := m[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// lookup is pick that also reports keys present with a null value.
func lookup(m map[string]any, names ...string) (any, bool) {
	for _, name := range names {
		if v, ok := m[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// field converts one numeric field. Null volume is 0; null prices drop the row.
func field(v any, volume bool) (float64, error) {
	if v == nil {
		if volume {
			return 0, nil
		}
		return 0, errNullPrice
	}
	return toFloat(v)
}

func newBar(ts time.Time, open, high, low, closePrice, volume float64) domain.Bar {
	local := ts.In(exchange)
	y, mo, d := local.Date()
	midnight := time.Date(y, mo, d, 0, 0, 0, 0, exchange)
	return domain.Bar{
		Time:      local,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		TimeOfDay: local.Sub(midnight),
	}
}

// parseTime accepts RFC3339 strings, naive exchange-local strings and epoch milliseconds.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts, nil
		}
		if ts, err := time.Parse("2006-01-02 15:04:05-07:00", s); err == nil {
			return ts, nil
		}
		for _, layout := range naiveLayouts {
			if ts, err := time.ParseInLocation(layout, s, exchange); err == nil {
				return ts, nil
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms), nil
		}
		return time.Time{}, fmt.Errorf("unparseable datetime %q", s)
	case float64:
		return time.UnixMilli(int64(t)), nil
	default:
		return time.Time{}, fmt.Errorf("unexpected datetime type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}

// normalize sorts bars by time and drops duplicate timestamps, keeping the first seen.
func normalize(in []domain.Bar) []domain.Bar {
	sort.SliceStable(in, func(i, j int) bool {
		return in[i].Time.Before(in[j].Time)
	})

	out := in[:0]
	for i, b := range in {
		if i > 0 && b.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, b)
	}
	return out
}
