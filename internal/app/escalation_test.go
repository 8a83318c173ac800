package app

import (
	"context"
	"reflect"
	"testing"

	"storechat/internal/model"
	"storechat/internal/roles"
)

func agentCount(t *testing.T, f *fixture, sid uint) int {
	t.Helper()
	members, err := f.participants.ListBySessionID(sid)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, m := range members {
		if m.RoleSlug == model.RoleAgent {
			n++
		}
	}
	return n
}

func TestEscalationAddsOneAgentPerGap(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	ctx := context.Background()
	merchant := f.user(t, "merchant", roles.ShopManager)
	agent1 := f.user(t, "agent1", roles.Agent)
	f.user(t, "agent2", roles.Agent)
	buyer := f.buyer(t, "buyer")
	product := f.product(t, "mug", merchant.UserID, nil)
	sid := f.openSession(t, buyer, product.ID)

	if _, err := f.messages.Send(ctx, buyer, SendMessageInput{SessionID: sid, Text: "hello?"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := agentCount(t, f, sid); got != 1 {
		t.Fatalf("expected 1 agent, got %d", got)
	}
	if got := f.roleOf(t, sid, agent1.UserID); got != model.RoleAgent {
		t.Fatalf("expected first agent in pool, role %q", got)
	}
	value, err := f.counter.Value(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if value != 1 {
		t.Fatalf("counter = %d, want 1", value)
	}

	if _, err := f.messages.Send(ctx, buyer, SendMessageInput{SessionID: sid, Text: "anyone?"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := agentCount(t, f, sid); got != 1 {
		t.Fatalf("second message added an agent: %d", got)
	}
	if value, _ := f.counter.Value(ctx); value != 1 {
		t.Fatalf("counter advanced again: %d", value)
	}

	want := []string{
		model.NotificationNeedsAttention,
		model.NotificationNewMessage,
		model.NotificationNewMessage,
	}
	if got := f.publisher.kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("published %v, want %v", got, want)
	}
}

func TestEscalationSkippedWhenStaffOnline(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	ctx := context.Background()
	merchant := f.user(t, "merchant", roles.ShopManager)
	f.user(t, "agent", roles.Agent)
	buyer := f.buyer(t, "buyer")
	product := f.product(t, "mug", merchant.UserID, nil)
	sid := f.openSession(t, buyer, product.ID)

	if err := f.presence.Ping(ctx, merchant.UserID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.messages.Send(ctx, buyer, SendMessageInput{SessionID: sid, Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	if got := agentCount(t, f, sid); got != 0 {
		t.Fatalf("expected no agent, got %d", got)
	}
	if value, _ := f.counter.Value(ctx); value != 0 {
		t.Fatalf("counter advanced: %d", value)
	}
}

func TestEscalationOnlyForBuyers(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	ctx := context.Background()
	merchant := f.user(t, "merchant", roles.ShopManager)
	f.user(t, "agent", roles.Agent)
	buyer := f.buyer(t, "buyer")
	product := f.product(t, "mug", merchant.UserID, nil)
	sid := f.openSession(t, buyer, product.ID)

	if _, err := f.messages.Send(ctx, merchant, SendMessageInput{SessionID: sid, Text: "how can I help"}); err != nil {
		t.Fatal(err)
	}
	if got := agentCount(t, f, sid); got != 0 {
		t.Fatalf("merchant message escalated: %d agents", got)
	}
}

func TestEscalationWithEmptyPoolIsNoop(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	ctx := context.Background()
	buyer := f.buyer(t, "buyer")
	sid := f.openSession(t, buyer, 0)

	if _, err := f.messages.Send(ctx, buyer, SendMessageInput{SessionID: sid, Text: "hi"}); err != nil {
		t.Fatalf("send must succeed without agents: %v", err)
	}
	if got := agentCount(t, f, sid); got != 0 {
		t.Fatalf("unexpected agents: %d", got)
	}
	if value, _ := f.counter.Value(ctx); value != 0 {
		t.Fatalf("counter advanced with empty pool: %d", value)
	}
}
