package clickhouse

import (
	"context"
	"fmt"
	"time"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

// EquityCurveStore implements storage.EquityCurveStore using ClickHouse.
type EquityCurveStore struct {
	conn *Conn
}

// NewEquityCurveStore creates a new EquityCurveStore.
func NewEquityCurveStore(conn *Conn) *EquityCurveStore {
	return &EquityCurveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EquityCurveStore = (*EquityCurveStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, date).
func (s *EquityCurveStore) InsertBulk(ctx context.Context, points []*domain.EquityCurvePoint) error {
	if len(points) == 0 {
		return nil
	}

	seen := make(map[dateKey]struct{}, len(points))
	for _, p := range points {
		k := dateKey{p.RunID, p.Date.Format(domain.DateLayout)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, p := range points {
		exists, err := s.exists(ctx, p.RunID, p.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO equity_curve (run_id, date, equity, day_pnl, clamped)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		var clamped uint8
		if p.Clamped {
			clamped = 1
		}
		if err := batch.Append(p.RunID, p.Date, p.Equity, p.DayPnL, clamped); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves the curve of a run, ordered by date ASC.
func (s *EquityCurveStore) GetByRunID(ctx context.Context, runID string) ([]*domain.EquityCurvePoint, error) {
	query := `
		SELECT run_id, date, equity, day_pnl, clamped
		FROM equity_curve
		WHERE run_id = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query equity curve: %w", err)
	}
	defer rows.Close()

	var points []*domain.EquityCurvePoint
	for rows.Next() {
		var (
			p       domain.EquityCurvePoint
			clamped uint8
		)
		if err := rows.Scan(&p.RunID, &p.Date, &p.Equity, &p.DayPnL, &clamped); err != nil {
			return nil, fmt.Errorf("scan equity curve row: %w", err)
		}
		p.Date = domain.NormalizeDate(p.Date)
		p.Clamped = clamped == 1
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity curve rows: %w", err)
	}

	return points, nil
}

func (s *EquityCurveStore) exists(ctx context.Context, runID string, date time.Time) (bool, error) {
	query := `SELECT count(*) FROM equity_curve WHERE run_id = ? AND date = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, runID, date).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
