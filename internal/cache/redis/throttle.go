package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sunho-park/poswatch/internal/domain"
)

// Throttle rate-limits repeated signal keys. The durable backend is a Redis
// SETNX with TTL; when Redis is unreachable it degrades to a process-local
// map so throttling keeps working (less strictly) during an outage.
type Throttle struct {
	rdb      *redis.Client
	log      *slog.Logger
	fallback memoryThrottle
}

// NewThrottle creates a Throttle backed by the given Client.
func NewThrottle(c *Client, log *slog.Logger) *Throttle {
	return &Throttle{
		rdb:      c.Underlying(),
		log:      log.With("component", "throttle"),
		fallback: memoryThrottle{last: map[string]time.Time{}},
	}
}

// Allow reports whether key may fire now. A firing occupies the key for
// window; subsequent calls within the window return false.
func (t *Throttle) Allow(ctx context.Context, key string, window time.Duration) bool {
	ok, err := t.rdb.SetNX(ctx, "throttle:"+key, time.Now().Unix(), window).Result()
	if err != nil {
		t.log.Warn("throttle store unreachable, using in-process fallback", "key", key, "error", err)
		return t.fallback.allow(key, window)
	}
	return ok
}

// memoryThrottle is the degraded in-process backend. It is only consulted
// when Redis errors, so its view may lag the durable one.
type memoryThrottle struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func (m *memoryThrottle) allow(key string, window time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if t, ok := m.last[key]; ok && now.Sub(t) < window {
		return false
	}
	m.last[key] = now
	return true
}

// Compile-time interface check.
var _ domain.ThrottleStore = (*Throttle)(nil)
