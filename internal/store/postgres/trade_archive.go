package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sunho-park/poswatch/internal/domain"
)

// TradeArchive implements domain.TradeArchive using PostgreSQL. It is the
// long-term store of closed trades; the bounded Redis history remains the
// source for reports.
type TradeArchive struct {
	pool *pgxpool.Pool
}

var _ domain.TradeArchive = (*TradeArchive)(nil)

// NewTradeArchive creates a new TradeArchive backed by the given pool.
func NewTradeArchive(pool *pgxpool.Pool) *TradeArchive {
	return &TradeArchive{pool: pool}
}

const tradeSelectCols = `id, symbol, side, start_ts, close_ts, entry_price,
	close_price, total_entry_value, total_exit_value, closed_pnl, fee_funding,
	realized, margin_mode, leverage`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(
			&t.ID, &t.Symbol, &t.Side, &t.StartTs, &t.CloseTs,
			&t.EntryPrice, &t.ClosePrice, &t.TotalEntryValue, &t.TotalExitValue,
			&t.ClosedPnL, &t.FeeFunding, &t.Realized, &t.MarginMode, &t.Leverage,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert archives one closed trade. Re-inserting the same trade ID is a no-op
// so retried cycles stay idempotent.
func (s *TradeArchive) Insert(ctx context.Context, tr domain.Trade) error {
	const query = `
		INSERT INTO closed_trades (
			id, symbol, side, start_ts, close_ts, close_day,
			entry_price, close_price, total_entry_value, total_exit_value,
			closed_pnl, fee_funding, realized, margin_mode, leverage
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15
		) ON CONFLICT (id) DO NOTHING`

	day := tr.CloseTs.In(domain.KST).Format("2006-01-02")
	_, err := s.pool.Exec(ctx, query,
		tr.ID, tr.Symbol, tr.Side, tr.StartTs, tr.CloseTs, day,
		tr.EntryPrice, tr.ClosePrice, tr.TotalEntryValue, tr.TotalExitValue,
		tr.ClosedPnL, tr.FeeFunding, tr.Realized, tr.MarginMode, tr.Leverage,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert closed trade %s: %w", tr.ID, err)
	}
	return nil
}

// ListDay returns the archived trades closed on the given KST calendar day
// (YYYY-MM-DD), oldest first.
func (s *TradeArchive) ListDay(ctx context.Context, day string) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM closed_trades WHERE close_day = $1 ORDER BY close_ts ASC`
	rows, err := s.pool.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("postgres: list closed trades for %s: %w", day, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan closed trades for %s: %w", day, err)
	}
	return trades, nil
}
