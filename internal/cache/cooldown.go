package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

const DefaultNotifyCooldown = 60 * time.Second

// NotifyCooldown throttles notification emails per recipient and session.
type NotifyCooldown struct {
	client *redisv9.Client
	window time.Duration
}

func NewNotifyCooldown(client *redisv9.Client, window time.Duration) *NotifyCooldown {
	if window <= 0 {
		window = DefaultNotifyCooldown
	}
	return &NotifyCooldown{client: client, window: window}
}

// Acquire reports true when no notification went to userID for sessionID in
// the current window, and opens a new window.
func (c *NotifyCooldown) Acquire(ctx context.Context, sessionID, userID uint) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.key(sessionID, userID), "1", c.window).Result()
	if err != nil {
		return false, fmt.Errorf("redis set notify cooldown failed: %w", err)
	}
	return ok, nil
}

func (c *NotifyCooldown) key(sessionID, userID uint) string {
	return fmt.Sprintf("chat:notify:cooldown:%d:%d", sessionID, userID)
}
