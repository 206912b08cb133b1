package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sunho-park/poswatch/internal/domain"
)

// switchLogKeep caps how many switch-audit entries are retained.
const switchLogKeep = 300

// SettingsStore persists per-chat alert switches, runtime report settings,
// and the switch audit log. Reads degrade to the caller's default on any
// failure so a store hiccup never blocks alert delivery decisions.
//
// Key schema:
//
//	switch:{kind}:{chat} - "1" or "0"
//	cfg:{key}            - string setting
//	logs:switch          - list of JSON-serialized SwitchEntry, newest first
type SettingsStore struct {
	rdb *redis.Client
}

// NewSettingsStore creates a SettingsStore backed by the given Client.
func NewSettingsStore(c *Client) *SettingsStore {
	return &SettingsStore{rdb: c.Underlying()}
}

func switchKey(kind, chatID string) string { return "switch:" + kind + ":" + chatID }
func settingKey(key string) string         { return "cfg:" + key }

// SwitchOn reports whether the switch is on, returning def when the switch
// was never set or the read fails.
func (s *SettingsStore) SwitchOn(ctx context.Context, kind, chatID string, def bool) bool {
	v, err := s.rdb.Get(ctx, switchKey(kind, chatID)).Result()
	if err != nil {
		return def
	}
	return v == "1"
}

// SetSwitch turns the switch on or off.
func (s *SettingsStore) SetSwitch(ctx context.Context, kind, chatID string, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	if err := s.rdb.Set(ctx, switchKey(kind, chatID), v, 0).Err(); err != nil {
		return fmt.Errorf("redis: set switch %s:%s: %w", kind, chatID, err)
	}
	return nil
}

// SwitchIsSet reports whether the switch has an explicit value, as opposed to
// falling back to its default.
func (s *SettingsStore) SwitchIsSet(ctx context.Context, kind, chatID string) bool {
	n, err := s.rdb.Exists(ctx, switchKey(kind, chatID)).Result()
	return err == nil && n > 0
}

// GetSetting returns a runtime setting, or def when absent or unreadable.
func (s *SettingsStore) GetSetting(ctx context.Context, key, def string) string {
	v, err := s.rdb.Get(ctx, settingKey(key)).Result()
	if err != nil {
		return def
	}
	return v
}

// SetSetting stores a runtime setting.
func (s *SettingsStore) SetSetting(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, settingKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis: set setting %s: %w", key, err)
	}
	return nil
}

// LogSwitch appends an entry to the switch audit log and trims it to the
// retention cap.
func (s *SettingsStore) LogSwitch(ctx context.Context, entry domain.SwitchEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: marshal switch entry: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, "logs:switch", data)
	pipe.LTrim(ctx, "logs:switch", 0, switchLogKeep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: log switch: %w", err)
	}
	return nil
}

// ListSwitchLog returns the n most recent switch-audit entries, newest first.
func (s *SettingsStore) ListSwitchLog(ctx context.Context, n int) ([]domain.SwitchEntry, error) {
	if n <= 0 {
		n = switchLogKeep
	}
	rows, err := s.rdb.LRange(ctx, "logs:switch", 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list switch log: %w", err)
	}

	entries := make([]domain.SwitchEntry, 0, len(rows))
	for _, row := range rows {
		var e domain.SwitchEntry
		if err := json.Unmarshal([]byte(row), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Compile-time interface check.
var _ domain.SettingsStore = (*SettingsStore)(nil)
