package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"orb-lab/internal/domain"
	"orb-lab/internal/storage"
)

// RunSummaryStore implements storage.RunSummaryStore using ClickHouse.
type RunSummaryStore struct {
	conn *Conn
}

// NewRunSummaryStore creates a new RunSummaryStore.
func NewRunSummaryStore(conn *Conn) *RunSummaryStore {
	return &RunSummaryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RunSummaryStore = (*RunSummaryStore)(nil)

const runSummaryColumns = `
	run_id, strategy_id, compounding, start_date, end_date,
	candidates, entered, no_entry, skipped, wins, losses, win_rate,
	tickers, ticker_win_rate,
	pnl_pct_mean, pnl_pct_median, pnl_pct_p10, pnl_pct_p90, pnl_pct_stddev,
	total_dollar_pnl, total_base_pnl, profit_factor, final_equity,
	max_drawdown, max_drawdown_pct, max_consecutive_losses,
	skip_reasons`

// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
func (s *RunSummaryStore) Insert(ctx context.Context, rs *domain.RunSummary) error {
	// ReplacingMergeTree would replace silently; keep append-only semantics.
	exists, err := s.exists(ctx, rs.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	var compounding uint8
	if rs.Compounding {
		compounding = 1
	}
	skips := make(map[string]uint32, len(rs.SkipReasons))
	for k, v := range rs.SkipReasons {
		skips[k] = uint32(v)
	}

	query := `INSERT INTO run_summaries (` + runSummaryColumns + `) VALUES (
		?, ?, ?, ?, ?,
		?, ?, ?, ?, ?, ?, ?,
		?, ?,
		?, ?, ?, ?, ?,
		?, ?, ?, ?,
		?, ?, ?,
		?
	)`

	err = s.conn.Exec(ctx, query,
		rs.RunID, rs.StrategyID, compounding, rs.StartDate, rs.EndDate,
		uint32(rs.Candidates), uint32(rs.Entered), uint32(rs.NoEntry), uint32(rs.Skipped),
		uint32(rs.Wins), uint32(rs.Losses), rs.WinRate,
		uint32(rs.Tickers), rs.TickerWinRate,
		rs.PnLPctMean, rs.PnLPctMedian, rs.PnLPctP10, rs.PnLPctP90, rs.PnLPctStddev,
		rs.TotalDollarPnL, rs.TotalBasePnL, rs.ProfitFactor, rs.FinalEquity,
		rs.MaxDrawdown, rs.MaxDrawdownPct, uint32(rs.MaxConsecutiveLosses),
		skips,
	)
	if err != nil {
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

// GetByID retrieves a summary by run ID. Returns ErrNotFound if not exists.
func (s *RunSummaryStore) GetByID(ctx context.Context, runID string) (*domain.RunSummary, error) {
	query := `SELECT ` + runSummaryColumns + `
		FROM run_summaries FINAL
		WHERE run_id = ?
		LIMIT 1`

	rs, err := scanRunSummary(s.conn.QueryRow(ctx, query, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run summary: %w", err)
	}
	return rs, nil
}

// GetAll retrieves all summaries ordered by run_id.
func (s *RunSummaryStore) GetAll(ctx context.Context) ([]*domain.RunSummary, error) {
	query := `SELECT ` + runSummaryColumns + `
		FROM run_summaries FINAL
		ORDER BY run_id ASC`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all: %w", err)
	}
	defer rows.Close()

	var summaries []*domain.RunSummary
	for rows.Next() {
		rs, err := scanRunSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run summary row: %w", err)
		}
		summaries = append(summaries, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run summary rows: %w", err)
	}

	return summaries, nil
}

func (s *RunSummaryStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM run_summaries FINAL WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRunSummary(row scanner) (*domain.RunSummary, error) {
	var (
		rs                                                domain.RunSummary
		compounding                                       uint8
		candidates, entered, noEntry, skipped, wins, loss uint32
		tickers, maxLosses                                uint32
		skips                                             map[string]uint32
	)

	err := row.Scan(
		&rs.RunID, &rs.StrategyID, &compounding, &rs.StartDate, &rs.EndDate,
		&candidates, &entered, &noEntry, &skipped, &wins, &loss, &rs.WinRate,
		&tickers, &rs.TickerWinRate,
		&rs.PnLPctMean, &rs.PnLPctMedian, &rs.PnLPctP10, &rs.PnLPctP90, &rs.PnLPctStddev,
		&rs.TotalDollarPnL, &rs.TotalBasePnL, &rs.ProfitFactor, &rs.FinalEquity,
		&rs.MaxDrawdown, &rs.MaxDrawdownPct, &maxLosses,
		&skips,
	)
	if err != nil {
		return nil, err
	}

	rs.Compounding = compounding == 1
	rs.StartDate = domain.NormalizeDate(rs.StartDate)
	rs.EndDate = domain.NormalizeDate(rs.EndDate)
	rs.Candidates = int(candidates)
	rs.Entered = int(entered)
	rs.NoEntry = int(noEntry)
	rs.Skipped = int(skipped)
	rs.Wins = int(wins)
	rs.Losses = int(loss)
	rs.Tickers = int(tickers)
	rs.MaxConsecutiveLosses = int(maxLosses)
	rs.SkipReasons = make(map[string]int, len(skips))
	for k, v := range skips {
		rs.SkipReasons[k] = int(v)
	}

	return &rs, nil
}
