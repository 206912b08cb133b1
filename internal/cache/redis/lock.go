package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sunho-park/poswatch/internal/domain"
)

// unlockLua releases a lock only when the stored token still belongs to the
// caller, so an expired holder cannot free a lock someone else re-acquired.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LockManager guards the reconciliation cycle across replicas with a Redis
// SET NX lock plus conditional unlock. Within one process the classifier's
// own mutex already serializes cycles; this covers the multi-replica case.
type LockManager struct {
	rdb    *redis.Client
	unlock *redis.Script
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:    c.Underlying(),
		unlock: redis.NewScript(unlockLua),
	}
}

// Acquire takes the lock for key with the given TTL and returns an idempotent
// release function. Returns domain.ErrLockHeld when another holder owns it.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := "lock:" + key

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// The caller's context is usually done by release time; give the
			// unlock its own deadline so the lock never waits out its TTL.
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = lm.unlock.Run(rctx, lm.rdb, []string{lk}, token).Err()
		})
	}
	return release, nil
}

var _ domain.LockManager = (*LockManager)(nil)
