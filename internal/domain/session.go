package domain

import "time"

// SessionRecord is the durable accumulator tracking one position's cumulative
// entry/exit notional across its open life. It is created when a position is
// first observed and deleted only after the close Trade has been appended.
//
// TotalEntryValue and TotalExitValue are running totals; they only grow and
// are never reset except by deletion of the whole record on close.
type SessionRecord struct {
	Symbol         string     `json:"symbol"`
	Side           Side       `json:"side"`
	Base           string     `json:"base"`
	MarginMode     MarginMode `json:"margin_mode"`
	Leverage       float64    `json:"leverage"`
	StartTs        time.Time  `json:"start_ts"`
	EntryPriceInit float64    `json:"entry_price_init"`

	TotalEntryValue float64 `json:"total_entry_value"`
	TotalExitValue  float64 `json:"total_exit_value"`

	// Advisory cache of the most recent observation, used to reconstruct a
	// close when the record must be rebuilt from a stale snapshot.
	LastQty        float64 `json:"last_qty"`
	LastMarkPrice  float64 `json:"last_mark_price"`
	LastEntryPrice float64 `json:"last_entry_price"`
	LastRPnL       float64 `json:"last_r_pnl"`
}

// NewSessionRecord seeds a session from a freshly observed position.
// The current notional becomes the initial entry value; exit value starts at
// zero.
func NewSessionRecord(p Position, now time.Time) SessionRecord {
	return SessionRecord{
		Symbol:          p.Symbol,
		Side:            p.Side,
		Base:            p.Base,
		MarginMode:      p.MarginMode,
		Leverage:        p.Leverage,
		StartTs:         now,
		EntryPriceInit:  p.EntryPrice,
		TotalEntryValue: p.Value,
		TotalExitValue:  0,
		LastQty:         p.Quantity,
		LastMarkPrice:   p.MarkPrice,
		LastEntryPrice:  p.EntryPrice,
		LastRPnL:        p.RealizedPnL,
	}
}

// Touch refreshes the advisory cache fields from the latest observation.
func (s *SessionRecord) Touch(p Position) {
	s.LastQty = p.Quantity
	s.LastMarkPrice = p.MarkPrice
	s.LastEntryPrice = p.EntryPrice
	s.LastRPnL = p.RealizedPnL
	s.MarginMode = p.MarginMode
	s.Leverage = p.Leverage
}
