// Package domain defines the core types of the position watcher: normalized
// exchange positions, per-position session records, finalized trades, and the
// store/source interfaces the engine depends on.
package domain

import "strings"

// Side is the direction of a derivatives position.
type Side string

const (
	SideLong  Side = "Long"
	SideShort Side = "Short"
)

// MarginMode is the margin setting of a position.
type MarginMode string

const (
	MarginCross    MarginMode = "Cross"
	MarginIsolated MarginMode = "Isolated"
)

// Position is one normalized open derivatives position as reported by the
// exchange. It is derived fresh every cycle and never persisted on its own;
// the Snapshot map is the persisted unit.
type Position struct {
	Symbol        string     `json:"symbol"`
	Base          string     `json:"base"`
	Side          Side       `json:"side"`
	Quantity      float64    `json:"qty"`
	EntryPrice    float64    `json:"entry_price"`
	MarkPrice     float64    `json:"mark_price"`
	UnrealizedPnL float64    `json:"u_pnl"`
	RealizedPnL   float64    `json:"r_pnl"`
	Leverage      float64    `json:"leverage"`
	MarginMode    MarginMode `json:"margin_mode"`
	Value         float64    `json:"value"`
	Margin        float64    `json:"margin"`
	UPnLPct       float64    `json:"u_pnl_pct"`
}

// Key returns the identity key of the position. A symbol may carry at most
// one Long and one Short position simultaneously (hedge mode), so the
// (symbol, side) pair is the unit of tracking.
func (p Position) Key() string {
	return p.Symbol + "|" + string(p.Side)
}

// Snapshot is the complete set of currently open positions at one point in
// time, keyed by Position.Key(). Exactly one snapshot is persisted as
// "previous" and is fully replaced at the end of each reconciliation cycle.
type Snapshot map[string]Position

// BaseAsset extracts the base asset from an exchange symbol, e.g.
// "BTC-USDT" -> "BTC", "ETHUSDT" -> "ETH".
func BaseAsset(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, sep := range []string{"-", "/", "_"} {
		if i := strings.Index(s, sep); i >= 0 {
			return s[:i]
		}
	}
	for _, quote := range []string{"USDT", "USD", "PERP", ".P"} {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s[:len(s)-len(quote)]
		}
	}
	return s
}
