package postgres

import (
	"context"
	"fmt"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

// YearlyResultStore implements storage.YearlyResultStore using PostgreSQL.
type YearlyResultStore struct {
	pool *Pool
}

// NewYearlyResultStore creates a new YearlyResultStore.
func NewYearlyResultStore(pool *Pool) *YearlyResultStore {
	return &YearlyResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.YearlyResultStore = (*YearlyResultStore)(nil)

// InsertBulk adds multiple years atomically. Fails entire batch on duplicate (run_id, year).
func (s *YearlyResultStore) InsertBulk(ctx context.Context, years []*domain.YearlyResult) error {
	if len(years) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO yearly_results (
			run_id, year, start_equity, end_equity, year_pnl, year_return_pct,
			trades, clamped_days
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, y := range years {
		_, err := tx.Exec(ctx, query,
			y.RunID, y.Year, y.StartEquity, y.EndEquity, y.YearPnL, y.YearReturnPct,
			y.Trades, y.ClampedDays,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert yearly result in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all years of a run, ordered by year ASC.
func (s *YearlyResultStore) GetByRunID(ctx context.Context, runID string) ([]*domain.YearlyResult, error) {
	query := `
		SELECT
			run_id, year, start_equity, end_equity, year_pnl, year_return_pct,
			trades, clamped_days
		FROM yearly_results
		WHERE run_id = $1
		ORDER BY year ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get yearly results by run id: %w", err)
	}
	defer rows.Close()

	var years []*domain.YearlyResult
	for rows.Next() {
		var y domain.YearlyResult
		err := rows.Scan(
			&y.RunID, &y.Year, &y.StartEquity, &y.EndEquity, &y.YearPnL, &y.YearReturnPct,
			&y.Trades, &y.ClampedDays,
		)
		if err != nil {
			return nil, fmt.Errorf("scan yearly result row: %w", err)
		}
		years = append(years, &y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate yearly result rows: %w", err)
	}

	return years, nil
}
