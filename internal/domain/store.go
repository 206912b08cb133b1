package domain

import (
	"context"
	"time"
)

// PositionSource supplies the current set of raw open positions from the
// exchange. A nil or empty slice is a valid answer ("currently flat").
type PositionSource interface {
	FetchPositions(ctx context.Context) ([]RawRecord, error)
}

// SettlementSource supplies raw settlement (income) records for one symbol
// over a millisecond time window. Empty or error returns are valid and cause
// the reconciler to fall back to its estimator.
type SettlementSource interface {
	FetchSettlements(ctx context.Context, symbol string, startMs, endMs int64) ([]RawRecord, error)
}

// StateStore persists the previous-cycle snapshot and the initial-sync flag.
type StateStore interface {
	GetSnapshot(ctx context.Context) (Snapshot, error)
	SetSnapshot(ctx context.Context, snap Snapshot) error
	InitDone(ctx context.Context) (bool, error)
	MarkInitDone(ctx context.Context) error
	// Reset clears the snapshot and the initial-sync flag so the next cycle
	// re-seeds sessions without emitting alerts.
	Reset(ctx context.Context) error
}

// SessionStore persists one SessionRecord per open identity key.
type SessionStore interface {
	Get(ctx context.Context, key string) (SessionRecord, error)
	Put(ctx context.Context, key string, rec SessionRecord) error
	Delete(ctx context.Context, key string) error
}

// TradeHistory is the append-only, date-partitioned store of finalized
// trades. Each calendar day is a bounded list; Append trims to the retention
// cap.
type TradeHistory interface {
	Append(ctx context.Context, tr Trade) error
	ListDay(ctx context.Context, day string) ([]Trade, error)
}

// SwitchEntry is one row of the switch audit log.
type SwitchEntry struct {
	Ts   time.Time `json:"ts"`
	Cmd  string    `json:"cmd"`
	UID  string    `json:"uid"`
	Note string    `json:"note"`
}

// SettingsStore persists per-chat alert switches, runtime report settings,
// and the switch audit log. Read failures degrade to defaults; they never
// abort the caller.
type SettingsStore interface {
	SwitchOn(ctx context.Context, kind, chatID string, def bool) bool
	SetSwitch(ctx context.Context, kind, chatID string, on bool) error
	SwitchIsSet(ctx context.Context, kind, chatID string) bool

	GetSetting(ctx context.Context, key, def string) string
	SetSetting(ctx context.Context, key, value string) error

	LogSwitch(ctx context.Context, entry SwitchEntry) error
	ListSwitchLog(ctx context.Context, n int) ([]SwitchEntry, error)
}

// ThrottleStore rate-limits repeated signals. Allow reports whether the key
// may fire now and, when it may, records the new firing time.
type ThrottleStore interface {
	Allow(ctx context.Context, key string, window time.Duration) bool
}

// RateLimiter bounds request rates per key over a sliding window. Unlike
// ThrottleStore it counts events, permitting up to limit per window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// TradeArchive is the optional long-term archive of finalized trades,
// outliving the bounded per-day history lists.
type TradeArchive interface {
	Insert(ctx context.Context, tr Trade) error
	ListDay(ctx context.Context, day string) ([]Trade, error)
}

// LockManager provides a distributed mutual-exclusion primitive guarding the
// reconciliation cycle across replicas.
type LockManager interface {
	// Acquire returns an unlock function on success, or ErrLockHeld when the
	// lock is already held by another party.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
