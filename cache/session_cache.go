package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"unframe/model"

	"github.com/go-redis/redis/v8"
)

// sessionTTL bounds how long an abandoned session snapshot lingers.
const sessionTTL = 24 * time.Hour

// SessionCache keeps the latest playback snapshot per user so a
// reconnecting session can pick up where the last one stopped. Purely
// ephemeral; losing a snapshot costs nothing but the resume position.
type SessionCache struct {
	client *redis.Client
}

// NewSessionCache creates a SessionCache over the given client.
func NewSessionCache(client *redis.Client) *SessionCache {
	return &SessionCache{client: client}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("session:%d", userID)
}

// SaveSnapshot stores the user's latest playback snapshot.
func (c *SessionCache) SaveSnapshot(ctx context.Context, userID int64, snap *model.PlaybackSnapshot) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal playback snapshot: %w", err)
	}
	if err := c.client.Set(ctx, sessionKey(userID), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save playback snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the user's latest snapshot, or nil when none is
// cached.
func (c *SessionCache) GetSnapshot(ctx context.Context, userID int64) (*model.PlaybackSnapshot, error) {
	if c.client == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get playback snapshot: %w", err)
	}
	var snap model.PlaybackSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal playback snapshot: %w", err)
	}
	return &snap, nil
}

// DropSnapshot removes the cached snapshot, e.g. on sign-out.
func (c *SessionCache) DropSnapshot(ctx context.Context, userID int64) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to drop playback snapshot: %w", err)
	}
	return nil
}
