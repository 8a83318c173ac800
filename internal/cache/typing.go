package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

const DefaultTypingTTL = 8 * time.Second

// TypingTracker stores short-lived "is composing" flags per (session, user).
type TypingTracker struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewTypingTracker(client *redisv9.Client, ttl time.Duration) *TypingTracker {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &TypingTracker{client: client, ttl: ttl}
}

func (t *TypingTracker) SetTyping(ctx context.Context, sessionID, userID uint) error {
	if err := t.client.Set(ctx, t.key(sessionID, userID), "1", t.ttl).Err(); err != nil {
		return fmt.Errorf("redis set typing failed: %w", err)
	}
	return nil
}

// Typing returns, in input order, the candidates whose flag in sessionID is
// still live.
func (t *TypingTracker) Typing(ctx context.Context, sessionID uint, candidates []uint) ([]uint, error) {
	typing := make([]uint, 0)
	if len(candidates) == 0 {
		return typing, nil
	}

	keys := make([]string, len(candidates))
	for i, id := range candidates {
		keys[i] = t.key(sessionID, id)
	}
	values, err := t.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get typing failed: %w", err)
	}
	for i, id := range candidates {
		if values[i] != nil {
			typing = append(typing, id)
		}
	}
	return typing, nil
}

func (t *TypingTracker) key(sessionID, userID uint) string {
	return fmt.Sprintf("chat:typing:%d:%d", sessionID, userID)
}
