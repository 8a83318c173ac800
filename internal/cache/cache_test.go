package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redisv9.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestPresenceExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	presence := NewPresenceTracker(client, time.Minute)
	ctx := context.Background()

	if err := presence.Ping(ctx, 42); err != nil {
		t.Fatal(err)
	}
	online, err := presence.IsOnline(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if !online {
		t.Fatal("user should be online right after ping")
	}

	mr.FastForward(61 * time.Second)
	online, err = presence.IsOnline(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if online {
		t.Fatal("user should be offline after the window")
	}
}

func TestPresenceStaleStampIsOffline(t *testing.T) {
	_, client := newTestRedis(t)
	presence := NewPresenceTracker(client, time.Minute)
	ctx := context.Background()

	base := time.Now()
	presence.now = func() time.Time { return base }
	if err := presence.Ping(ctx, 1); err != nil {
		t.Fatal(err)
	}
	presence.now = func() time.Time { return base.Add(2 * time.Minute) }
	online, err := presence.IsOnline(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if online {
		t.Fatal("stamp older than the window must read as offline")
	}
}

func TestOnlineMapUnknownUsersAreOffline(t *testing.T) {
	_, client := newTestRedis(t)
	presence := NewPresenceTracker(client, 0)
	ctx := context.Background()

	_ = presence.Ping(ctx, 1)
	got, err := presence.OnlineMap(ctx, []uint{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if !got[1] || got[2] {
		t.Fatalf("OnlineMap = %v", got)
	}
}

func TestTypingExcludesExpiredFlags(t *testing.T) {
	mr, client := newTestRedis(t)
	typing := NewTypingTracker(client, 8*time.Second)
	ctx := context.Background()

	_ = typing.SetTyping(ctx, 1, 10)
	_ = typing.SetTyping(ctx, 1, 11)
	_ = typing.SetTyping(ctx, 2, 12)

	got, err := typing.Typing(ctx, 1, []uint{10, 11, 12})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 10 || got[1] != 11 {
		t.Fatalf("typing = %v, want [10 11]", got)
	}

	mr.FastForward(5 * time.Second)
	_ = typing.SetTyping(ctx, 1, 11)
	mr.FastForward(4 * time.Second)

	got, err = typing.Typing(ctx, 1, []uint{10, 11})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 11 {
		t.Fatalf("typing = %v, want [11]", got)
	}
}

func TestNotifyCooldown(t *testing.T) {
	mr, client := newTestRedis(t)
	cooldown := NewNotifyCooldown(client, time.Minute)
	ctx := context.Background()

	if ok, _ := cooldown.Acquire(ctx, 1, 2); !ok {
		t.Fatal("first acquire should succeed")
	}
	if ok, _ := cooldown.Acquire(ctx, 1, 2); ok {
		t.Fatal("second acquire inside window should fail")
	}
	if ok, _ := cooldown.Acquire(ctx, 1, 3); !ok {
		t.Fatal("other recipient has its own window")
	}
	mr.FastForward(61 * time.Second)
	if ok, _ := cooldown.Acquire(ctx, 1, 2); !ok {
		t.Fatal("acquire after window should succeed")
	}
}
