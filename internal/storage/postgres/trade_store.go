package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, run_id, trade_date, ticker, side, rvol, rvol_rank,
	entry_level, stop_level, atr_14, avg_volume_14, prev_close,
	outcome, skip_reason, entered,
	entry_price, entry_time, exit_price, exit_time, exit_reason,
	pnl_pct, dollar_pnl, base_dollar_pnl, position_size, shares, equity_before`

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.SimulatedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO simulated_trades (` + tradeColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7,
		$8, $9, $10, $11, $12,
		$13, $14, $15,
		$16, $17, $18, $19, $20,
		$21, $22, $23, $24, $25, $26
	)`

	for _, t := range trades {
		_, err := tx.Exec(ctx, query,
			t.TradeID, t.RunID, domain.NormalizeDate(t.TradeDate), t.Ticker, t.Side, t.RVOL, t.RVOLRank,
			t.EntryLevel, t.StopLevel, t.ATR14, t.AvgVolume14, t.PrevClose,
			t.Outcome, t.SkipReason, t.Entered,
			t.EntryPrice, t.EntryTime, t.ExitPrice, t.ExitTime, t.ExitReason,
			t.PnLPct, t.DollarPnL, t.BaseDollarPnL, t.PositionSize, t.Shares, t.EquityBefore,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert simulated trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.SimulatedTrade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM simulated_trades
		WHERE trade_id = $1`

	t, err := scanTrade(s.pool.QueryRow(ctx, query, tradeID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get simulated trade by id: %w", err)
	}
	return t, nil
}

// GetByRunID retrieves all trades of a run, ordered by trade_date ASC, rvol_rank ASC.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.SimulatedTrade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM simulated_trades
		WHERE run_id = $1
		ORDER BY trade_date ASC, rvol_rank ASC, trade_id ASC`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get simulated trades by run id: %w", err)
	}
	defer rows.Close()

	var trades []*domain.SimulatedTrade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan simulated trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulated trade rows: %w", err)
	}

	return trades, nil
}

func scanTrade(row pgx.Row) (*domain.SimulatedTrade, error) {
	var t domain.SimulatedTrade

	err := row.Scan(
		&t.TradeID, &t.RunID, &t.TradeDate, &t.Ticker, &t.Side, &t.RVOL, &t.RVOLRank,
		&t.EntryLevel, &t.StopLevel, &t.ATR14, &t.AvgVolume14, &t.PrevClose,
		&t.Outcome, &t.SkipReason, &t.Entered,
		&t.EntryPrice, &t.EntryTime, &t.ExitPrice, &t.ExitTime, &t.ExitReason,
		&t.PnLPct, &t.DollarPnL, &t.BaseDollarPnL, &t.PositionSize, &t.Shares, &t.EquityBefore,
	)
	if err != nil {
		return nil, err
	}

	t.TradeDate = domain.NormalizeDate(t.TradeDate)
	return &t, nil
}
