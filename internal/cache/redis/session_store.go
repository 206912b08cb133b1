package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sunho-park/poswatch/internal/domain"
)

// SessionStore persists one SessionRecord per open identity key.
//
// Key schema:
//
//	sess:position:{symbol|side} - JSON-serialized SessionRecord
type SessionStore struct {
	rdb *redis.Client
}

// NewSessionStore creates a SessionStore backed by the given Client.
func NewSessionStore(c *Client) *SessionStore {
	return &SessionStore{rdb: c.Underlying()}
}

func sessionKey(key string) string { return "sess:position:" + key }

// Get retrieves the session record for an identity key.
// It returns domain.ErrNotFound when no record exists.
func (s *SessionStore) Get(ctx context.Context, key string) (domain.SessionRecord, error) {
	data, err := s.rdb.Get(ctx, sessionKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.SessionRecord{}, domain.ErrNotFound
		}
		return domain.SessionRecord{}, fmt.Errorf("redis: get session %s: %w", key, err)
	}

	var rec domain.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("redis: unmarshal session %s: %w", key, err)
	}
	return rec, nil
}

// Put stores the session record without a TTL; records live until the close
// Trade is finalized and Delete is called.
func (s *SessionStore) Put(ctx context.Context, key string, rec domain.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal session %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, sessionKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: put session %s: %w", key, err)
	}
	return nil
}

// Delete removes the session record for an identity key.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, sessionKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: delete session %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SessionStore = (*SessionStore)(nil)
