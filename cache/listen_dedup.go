// Package cache holds the Redis-backed short-lived state: listen
// dedup windows and playback session snapshots.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ListenDedup absorbs duplicate listen reports. One SETNX per report:
// the first writer inside the window wins, everyone else is a
// duplicate. Multiple tabs of the same user racing here is exactly the
// case the window exists for.
type ListenDedup struct {
	client *redis.Client
	window time.Duration
}

// NewListenDedup creates a ListenDedup over the given client.
func NewListenDedup(client *redis.Client, window time.Duration) *ListenDedup {
	if window <= 0 {
		window = 30 * time.Second
	}
	return &ListenDedup{client: client, window: window}
}

func listenKey(userID, trackID int64) string {
	return fmt.Sprintf("listen:%d:%d", userID, trackID)
}

// FirstListen reports whether this is the first listen report for
// (user, track) inside the dedup window.
func (d *ListenDedup) FirstListen(ctx context.Context, userID, trackID int64) (bool, error) {
	if d.client == nil {
		return true, nil
	}
	ok, err := d.client.SetNX(ctx, listenKey(userID, trackID), 1, d.window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set listen dedup key: %w", err)
	}
	return ok, nil
}
