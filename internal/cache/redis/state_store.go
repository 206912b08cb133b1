package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sunho-park/poswatch/internal/domain"
)

const (
	snapshotKey = "state:open_positions"
	initDoneKey = "state:init_done"
)

// StateStore persists the previous-cycle position snapshot and the
// initial-sync flag.
//
// Key schema:
//
//	state:open_positions - JSON-serialized Snapshot
//	state:init_done      - "1" once the first sync has completed
type StateStore struct {
	rdb *redis.Client
}

// NewStateStore creates a StateStore backed by the given Client.
func NewStateStore(c *Client) *StateStore {
	return &StateStore{rdb: c.Underlying()}
}

// GetSnapshot returns the previously persisted snapshot, or
// domain.ErrNotFound when none has been written yet.
func (s *StateStore) GetSnapshot(ctx context.Context) (domain.Snapshot, error) {
	data, err := s.rdb.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("redis: unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// SetSnapshot fully replaces the persisted snapshot. No TTL: the snapshot is
// the engine's memory between cycles and must survive restarts.
func (s *StateStore) SetSnapshot(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot: %w", err)
	}
	return nil
}

// InitDone reports whether the first sync has completed.
func (s *StateStore) InitDone(ctx context.Context) (bool, error) {
	v, err := s.rdb.Get(ctx, initDoneKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis: get init flag: %w", err)
	}
	return v == "1", nil
}

// MarkInitDone sets the initial-sync flag permanently.
func (s *StateStore) MarkInitDone(ctx context.Context) error {
	if err := s.rdb.Set(ctx, initDoneKey, "1", 0).Err(); err != nil {
		return fmt.Errorf("redis: set init flag: %w", err)
	}
	return nil
}

// Reset clears the snapshot and the initial-sync flag so the next cycle
// re-seeds sessions without emitting alerts.
func (s *StateStore) Reset(ctx context.Context) error {
	if err := s.rdb.Del(ctx, snapshotKey, initDoneKey).Err(); err != nil {
		return fmt.Errorf("redis: reset state: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.StateStore = (*StateStore)(nil)
