package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sunho-park/poswatch/internal/domain"
)

// SessionLedger wraps the session store with the engine's consistency
// discipline: read failures degrade to reconstruction from the live position,
// while write failures surface to the caller because an unpersisted record
// risks double-counting on the next cycle.
type SessionLedger struct {
	store domain.SessionStore
	log   *slog.Logger
}

func NewSessionLedger(store domain.SessionStore, log *slog.Logger) *SessionLedger {
	return &SessionLedger{store: store, log: log.With("component", "ledger")}
}

// Load returns the session record for key. When the record is absent or the
// read fails it is rebuilt from the current position, so an earlier store
// hiccup never aborts a cycle.
func (l *SessionLedger) Load(ctx context.Context, key string, p domain.Position, now time.Time) domain.SessionRecord {
	rec, err := l.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			l.log.Warn("session read failed, rebuilding from live position", "key", key, "error", err)
		}
		return domain.NewSessionRecord(p, now)
	}
	return rec
}

// LoadClosing returns the session record for a key that just disappeared.
// There is no live position to rebuild from, so a missing record is
// reconstructed from the previous snapshot's last observation.
func (l *SessionLedger) LoadClosing(ctx context.Context, key string, prev domain.Position, now time.Time) domain.SessionRecord {
	rec, err := l.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			l.log.Warn("session read failed on close, rebuilding from previous snapshot", "key", key, "error", err)
		}
		return domain.NewSessionRecord(prev, now)
	}
	return rec
}

// Save persists a mutated record. Failures propagate.
func (l *SessionLedger) Save(ctx context.Context, key string, rec domain.SessionRecord) error {
	return l.store.Put(ctx, key, rec)
}

// Discard removes a record after its close Trade has been durably appended.
func (l *SessionLedger) Discard(ctx context.Context, key string) error {
	return l.store.Delete(ctx, key)
}
