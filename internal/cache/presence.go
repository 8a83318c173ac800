package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

const DefaultPresenceTTL = 60 * time.Second

// PresenceTracker keeps a last-seen stamp per user that expires after ttl.
// A missing key means offline.
type PresenceTracker struct {
	client *redisv9.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewPresenceTracker(client *redisv9.Client, ttl time.Duration) *PresenceTracker {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &PresenceTracker{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (p *PresenceTracker) Ping(ctx context.Context, userID uint) error {
	stamp := strconv.FormatInt(p.now().Unix(), 10)
	if err := p.client.Set(ctx, p.key(userID), stamp, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis set presence failed: %w", err)
	}
	return nil
}

func (p *PresenceTracker) IsOnline(ctx context.Context, userID uint) (bool, error) {
	online, err := p.OnlineMap(ctx, []uint{userID})
	if err != nil {
		return false, err
	}
	return online[userID], nil
}

// OnlineMap reports presence for every id in userIDs.
func (p *PresenceTracker) OnlineMap(ctx context.Context, userIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = p.key(id)
	}
	values, err := p.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get presence failed: %w", err)
	}

	cutoff := p.now().Add(-p.ttl).Unix()
	for i, id := range userIDs {
		out[id] = false
		raw, ok := values[i].(string)
		if !ok {
			continue
		}
		seen, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		out[id] = seen >= cutoff
	}
	return out, nil
}

func (p *PresenceTracker) key(userID uint) string {
	return fmt.Sprintf("chat:presence:%d", userID)
}
