// internal/infrastructure/database/redis/session_store.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/battery-checkout/internal/domain/checkout"
)

const sessionKeyPrefix = "checkout_session:"

// saveScript writes a snapshot unless a newer version is already stored
var saveScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
  local ok, decoded = pcall(cjson.decode, current)
  if ok and decoded["version"] and tonumber(decoded["version"]) > tonumber(ARGV[2]) then
    return 0
  end
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// SessionStore persists checkout session snapshots in redis
type SessionStore struct {
	client *Client
	ttl    time.Duration
}

// NewSessionStore creates a snapshot store with the given key TTL
func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Save stores a snapshot; an older version never overwrites a newer one
func (s *SessionStore) Save(ctx context.Context, snap *checkout.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}

	err = saveScript.Run(ctx, s.client.Redis,
		[]string{sessionKey(snap.ID)},
		data, snap.Version, s.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", snap.ID, err)
	}
	return nil
}

// Load reads a snapshot, returning checkout.ErrSessionNotFound on a miss
func (s *SessionStore) Load(ctx context.Context, id string) (*checkout.Snapshot, error) {
	data, err := s.client.Redis.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var snap checkout.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &snap, nil
}

// Delete removes a snapshot
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}
