package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sunho-park/poswatch/internal/domain"
)

// historyKeep caps how many trades one calendar day's list retains.
const historyKeep = 5000

// TradeHistory is the append-only, date-partitioned store of finalized
// trades, one bounded Redis list per calendar day.
//
// Key schema:
//
//	history:trades:{YYYY-MM-DD} - list of JSON-serialized Trades, newest first
type TradeHistory struct {
	rdb *redis.Client
	loc *time.Location
}

// NewTradeHistory creates a TradeHistory backed by the given Client.
// Trades are partitioned by calendar day in loc; a nil loc means KST, the
// calendar the reports and exports query by.
func NewTradeHistory(c *Client, loc *time.Location) *TradeHistory {
	if loc == nil {
		loc = domain.KST
	}
	return &TradeHistory{rdb: c.Underlying(), loc: loc}
}

func historyKey(day string) string { return "history:trades:" + day }

// dayKey resolves the list day a close timestamp belongs to.
func (h *TradeHistory) dayKey(t time.Time) string {
	return t.In(h.loc).Format("2006-01-02")
}

// Append pushes the trade onto its close-day list and trims the list to the
// retention cap.
func (h *TradeHistory) Append(ctx context.Context, tr domain.Trade) error {
	data, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("redis: marshal trade %s: %w", tr.ID, err)
	}

	key := historyKey(h.dayKey(tr.CloseTs))
	pipe := h.rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, historyKeep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: append trade %s: %w", tr.ID, err)
	}
	return nil
}

// ListDay returns all retained trades closed on the given day (YYYY-MM-DD),
// newest first. A day with no trades yields an empty slice.
func (h *TradeHistory) ListDay(ctx context.Context, day string) ([]domain.Trade, error) {
	rows, err := h.rdb.LRange(ctx, historyKey(day), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list trades %s: %w", day, err)
	}

	trades := make([]domain.Trade, 0, len(rows))
	for _, row := range rows {
		var tr domain.Trade
		if err := json.Unmarshal([]byte(row), &tr); err != nil {
			// A single corrupt row must not hide the rest of the day.
			continue
		}
		trades = append(trades, tr)
	}
	return trades, nil
}

// Compile-time interface check.
var _ domain.TradeHistory = (*TradeHistory)(nil)
