// Package parquetfile reads the trade universe from and writes run outputs to Parquet files.
package parquetfile

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

// UniverseRow is the on-disk layout of one universe candidate.
type UniverseRow struct {
	TradeDate   int32   `parquet:"trade_date,date"`
	Ticker      string  `parquet:"ticker"`
	Direction   int32   `parquet:"direction"`
	RVOL        float64 `parquet:"rvol"`
	OROpen      float64 `parquet:"or_open"`
	ORHigh      float64 `parquet:"or_high"`
	ORLow       float64 `parquet:"or_low"`
	ORClose     float64 `parquet:"or_close"`
	ORVolume    float64 `parquet:"or_volume"`
	ATR14       float64 `parquet:"atr_14"`
	AvgVolume14 float64 `parquet:"avg_volume_14"`
	PrevClose   float64 `parquet:"prev_close"`
	BarsJSON    string  `parquet:"bars_json"`
}

// UniverseReader serves a universe Parquet file as a storage.UniverseReader.
// The file is loaded once; rows keep file order within a day.
type UniverseReader struct {
	path string
	rows []*domain.Candidate
}

// Compile-time interface check.
var _ storage.UniverseReader = (*UniverseReader)(nil)

// OpenUniverse loads the universe file at path.
func OpenUniverse(path string) (*UniverseReader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat universe file: %w", err)
	}

	rows, err := parquet.ReadFile[UniverseRow](path)
	if err != nil {
		return nil, fmt.Errorf("read universe file %s: %w", path, err)
	}

	candidates := make([]*domain.Candidate, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toCandidate()
		if err != nil {
			return nil, fmt.Errorf("universe row %d: %w", i, err)
		}
		candidates = append(candidates, c)
	}

	return &UniverseReader{path: path, rows: candidates}, nil
}

// Path returns the file the reader was opened from.
func (r *UniverseReader) Path() string {
	return r.path
}

// Len returns the number of rows in the file.
func (r *UniverseReader) Len() int {
	return len(r.rows)
}

// All returns every candidate of the file, in file order.
func (r *UniverseReader) All() []*domain.Candidate {
	out := make([]*domain.Candidate, len(r.rows))
	for i, c := range r.rows {
		out[i] = copyCandidate(c)
	}
	return out
}

// GetByDateRange retrieves candidates with trade_date in [from, to], ordered by
// trade_date ASC then file order.
func (r *UniverseReader) GetByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	from, to = domain.NormalizeDate(from), domain.NormalizeDate(to)

	var result []*domain.Candidate
	for _, c := range r.rows {
		if c.TradeDate.Before(from) || c.TradeDate.After(to) {
			continue
		}
		result = append(result, copyCandidate(c))
	}
	sortByDate(result)
	return result, nil
}

// WriteUniverse writes candidates to a universe Parquet file.
func WriteUniverse(path string, candidates []*domain.Candidate) error {
	rows := make([]UniverseRow, len(candidates))
	for i, c := range candidates {
		rows[i] = UniverseRow{
			TradeDate:   toDays(c.TradeDate),
			Ticker:      c.Ticker,
			Direction:   int32(c.Direction),
			RVOL:        c.RVOL,
			OROpen:      c.OROpen,
			ORHigh:      c.ORHigh,
			ORLow:       c.ORLow,
			ORClose:     c.ORClose,
			ORVolume:    c.ORVolume,
			ATR14:       c.ATR14,
			AvgVolume14: c.AvgVolume14,
			PrevClose:   c.PrevClose,
			BarsJSON:    string(c.Bars),
		}
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write universe file %s: %w", path, err)
	}
	return nil
}

func (row *UniverseRow) toCandidate() (*domain.Candidate, error) {
	if strings.TrimSpace(row.Ticker) == "" {
		return nil, fmt.Errorf("%w: empty ticker", storage.ErrInvalidInput)
	}
	switch domain.Direction(row.Direction) {
	case domain.DirectionLong, domain.DirectionShort, domain.DirectionNone:
	default:
		return nil, fmt.Errorf("%w: direction %d", storage.ErrInvalidInput, row.Direction)
	}

	return &domain.Candidate{
		TradeDate:   fromDays(row.TradeDate),
		Ticker:      row.Ticker,
		Direction:   domain.Direction(row.Direction),
		RVOL:        row.RVOL,
		OROpen:      row.OROpen,
		ORHigh:      row.ORHigh,
		ORLow:       row.ORLow,
		ORClose:     row.ORClose,
		ORVolume:    row.ORVolume,
		ATR14:       row.ATR14,
		AvgVolume14: row.AvgVolume14,
		PrevClose:   row.PrevClose,
		Bars:        []byte(row.BarsJSON),
	}, nil
}

func copyCandidate(c *domain.Candidate) *domain.Candidate {
	cp := *c
	if c.Bars != nil {
		cp.Bars = append([]byte(nil), c.Bars...)
	}
	return &cp
}
