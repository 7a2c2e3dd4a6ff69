package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

// UniverseStore implements storage.UniverseStore using PostgreSQL.
type UniverseStore struct {
	pool *Pool
}

// NewUniverseStore creates a new UniverseStore.
func NewUniverseStore(pool *Pool) *UniverseStore {
	return &UniverseStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UniverseStore = (*UniverseStore)(nil)

const universeColumns = `
	trade_date, ticker, direction, rvol,
	or_open, or_high, or_low, or_close, or_volume,
	atr_14, avg_volume_14, prev_close, bars_json`

// InsertBulk adds multiple candidates atomically. Fails entire batch on duplicate (trade_date, ticker).
func (s *UniverseStore) InsertBulk(ctx context.Context, candidates []*domain.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	for _, c := range candidates {
		if c.Ticker == "" || c.TradeDate.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO universe_candidates (` + universeColumns + `) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9,
		$10, $11, $12, $13
	)`

	for _, c := range candidates {
		_, err := tx.Exec(ctx, query,
			domain.NormalizeDate(c.TradeDate), c.Ticker, int16(c.Direction), c.RVOL,
			c.OROpen, c.ORHigh, c.ORLow, c.ORClose, c.ORVolume,
			c.ATR14, c.AvgVolume14, c.PrevClose, string(c.Bars),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert universe candidate in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// Get retrieves one candidate. Returns ErrNotFound if not exists.
func (s *UniverseStore) Get(ctx context.Context, tradeDate time.Time, ticker string) (*domain.Candidate, error) {
	query := `SELECT ` + universeColumns + `
		FROM universe_candidates
		WHERE trade_date = $1 AND upper(ticker) = $2`

	c, err := scanCandidate(s.pool.QueryRow(ctx, query, domain.NormalizeDate(tradeDate), strings.ToUpper(ticker)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get universe candidate: %w", err)
	}
	return c, nil
}

// GetByDateRange retrieves candidates with trade_date in [from, to], in load order per day.
func (s *UniverseStore) GetByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Candidate, error) {
	query := `SELECT ` + universeColumns + `
		FROM universe_candidates
		WHERE trade_date >= $1 AND trade_date <= $2
		ORDER BY trade_date ASC, seq ASC`

	rows, err := s.pool.Query(ctx, query, domain.NormalizeDate(from), domain.NormalizeDate(to))
	if err != nil {
		return nil, fmt.Errorf("get universe by date range: %w", err)
	}
	defer rows.Close()

	var candidates []*domain.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan universe candidate row: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate universe rows: %w", err)
	}

	return candidates, nil
}

func scanCandidate(row pgx.Row) (*domain.Candidate, error) {
	var (
		c         domain.Candidate
		direction int16
		bars      string
	)

	err := row.Scan(
		&c.TradeDate, &c.Ticker, &direction, &c.RVOL,
		&c.OROpen, &c.ORHigh, &c.ORLow, &c.ORClose, &c.ORVolume,
		&c.ATR14, &c.AvgVolume14, &c.PrevClose, &bars,
	)
	if err != nil {
		return nil, err
	}

	c.TradeDate = domain.NormalizeDate(c.TradeDate)
	c.Direction = domain.Direction(direction)
	c.Bars = []byte(bars)
	return &c, nil
}
