package domain

import "time"

// KST is the calendar every day-partitioned surface slices on: the per-day
// trade history, the daily reports, the archive's close_day column, and the
// export objects. All of them must agree or trades near midnight fall
// between days.
var KST = time.FixedZone("KST", 9*60*60)

// Trade is the immutable finalized record of one completed (opened then
// closed) position. It is produced exactly once per close event and appended
// to the date-partitioned trade history; it is never mutated afterwards.
type Trade struct {
	ID              string     `json:"id"`
	Symbol          string     `json:"symbol"`
	Side            Side       `json:"side"`
	StartTs         time.Time  `json:"start_ts"`
	CloseTs         time.Time  `json:"close_ts"`
	EntryPrice      float64    `json:"entry_price"`
	ClosePrice      float64    `json:"close_price"`
	TotalEntryValue float64    `json:"total_entry_value"`
	TotalExitValue  float64    `json:"total_exit_value"`
	ClosedPnL       float64    `json:"closed_pnl"`
	FeeFunding      float64    `json:"fee_funding"`
	Realized        float64    `json:"realized"`
	MarginMode      MarginMode `json:"margin_mode"`
	Leverage        float64    `json:"leverage"`
}

// EventCounts aggregates how many lifecycle events of each kind one
// reconciliation cycle produced.
type EventCounts struct {
	Open   int `json:"open"`
	Add    int `json:"add"`
	Reduce int `json:"reduce"`
	Close  int `json:"close"`
}

// Total returns the sum of all event counts.
func (e EventCounts) Total() int {
	return e.Open + e.Add + e.Reduce + e.Close
}

// CycleResult is the outcome of one reconciliation cycle, handed to the
// alerting layer for rendering. Events carries one entry per individual
// lifecycle transition, in detection order; Counts aggregates them.
type CycleResult struct {
	InitialSync  bool            `json:"initial_sync,omitempty"`
	PositionsNow int             `json:"positions_now"`
	Counts       EventCounts     `json:"counts"`
	Events       []PositionEvent `json:"events"`
	ClosedTrades []Trade         `json:"closed_trades"`
}
