package clickhouse

import (
	"context"
	"fmt"
	"time"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

// DailyPerformanceStore implements storage.DailyPerformanceStore using ClickHouse.
type DailyPerformanceStore struct {
	conn *Conn
}

// NewDailyPerformanceStore creates a new DailyPerformanceStore.
func NewDailyPerformanceStore(conn *Conn) *DailyPerformanceStore {
	return &DailyPerformanceStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyPerformanceStore = (*DailyPerformanceStore)(nil)

// InsertBulk adds multiple rows. Fails entire batch on duplicate (run_id, date).
func (s *DailyPerformanceStore) InsertBulk(ctx context.Context, days []*domain.DailyPerformance) error {
	if len(days) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[dateKey]struct{}, len(days))
	for _, d := range days {
		k := dateKey{d.RunID, d.Date.Format(domain.DateLayout)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, d := range days {
		exists, err := s.exists(ctx, d.RunID, d.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_performance (
			run_id, date, candidates, entered, winners, losers,
			base_pnl, dollar_pnl, equity_end
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, d := range days {
		err = batch.Append(
			d.RunID, d.Date, uint32(d.Candidates), uint32(d.Entered),
			uint32(d.Winners), uint32(d.Losers),
			d.BasePnL, d.DollarPnL, d.EquityEnd,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all days of a run, ordered by date ASC.
func (s *DailyPerformanceStore) GetByRunID(ctx context.Context, runID string) ([]*domain.DailyPerformance, error) {
	query := `
		SELECT
			run_id, date, candidates, entered, winners, losers,
			base_pnl, dollar_pnl, equity_end
		FROM daily_performance
		WHERE run_id = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query daily performance: %w", err)
	}
	defer rows.Close()

	var days []*domain.DailyPerformance
	for rows.Next() {
		var (
			d                                    domain.DailyPerformance
			candidates, entered, winners, losers uint32
		)
		err := rows.Scan(
			&d.RunID, &d.Date, &candidates, &entered, &winners, &losers,
			&d.BasePnL, &d.DollarPnL, &d.EquityEnd,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily performance row: %w", err)
		}
		d.Date = domain.NormalizeDate(d.Date)
		d.Candidates = int(candidates)
		d.Entered = int(entered)
		d.Winners = int(winners)
		d.Losers = int(losers)
		days = append(days, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily performance rows: %w", err)
	}

	return days, nil
}

func (s *DailyPerformanceStore) exists(ctx context.Context, runID string, date time.Time) (bool, error) {
	query := `SELECT count(*) FROM daily_performance WHERE run_id = ? AND date = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, runID, date).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
