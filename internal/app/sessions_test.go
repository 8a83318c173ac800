package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storechat/internal/model"
	"storechat/internal/roles"
)

func TestCreateOrGetReturnsExistingSession(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	ctx := context.Background()
	merchant := f.user(t, "merchant", roles.ShopManager)
	buyer := f.buyer(t, "buyer")
	product := f.product(t, "mug", merchant.UserID, nil)

	first, err := f.sessions.CreateOrGet(ctx, buyer, product.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !first.Created {
		t.Fatal("first call should create a session")
	}

	second, err := f.sessions.CreateOrGet(ctx, buyer, product.ID)
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if second.Created || second.SessionID != first.SessionID {
		t.Fatalf("expected existing session %d, got %+v", first.SessionID, second)
	}

	session, err := f.sessionRepo.GetByID(first.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if session.Title != "Chat: mug" {
		t.Fatalf("unexpected title %q", session.Title)
	}
	if got := f.roleOf(t, first.SessionID, buyer.UserID); got != model.RoleBuyer {
		t.Fatalf("buyer role = %q", got)
	}
	if got := f.roleOf(t, first.SessionID, merchant.UserID); got != model.RoleMerchant {
		t.Fatalf("merchant role = %q", got)
	}
}

func TestCreateOrGetUnknownProduct(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	buyer := f.buyer(t, "buyer")

	_, err := f.sessions.CreateOrGet(context.Background(), buyer, 999)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("unexpected kind %v", KindOf(err))
	}
}

func TestGeneralSessionsAreNotReused(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	ctx := context.Background()
	buyer := f.buyer(t, "buyer")

	a, err := f.sessions.CreateOrGet(ctx, buyer, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.sessions.CreateOrGet(ctx, buyer, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Created || !b.Created || a.SessionID == b.SessionID {
		t.Fatalf("expected two new sessions, got %+v and %+v", a, b)
	}
	session, err := f.sessionRepo.GetByID(a.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if session.Title != "Chat: General" || session.ProductID != nil {
		t.Fatalf("unexpected general session %+v", session)
	}
}

func TestCreateAssignsDesignerFromProductMeta(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	merchant := f.user(t, "merchant", roles.ShopManager)
	designer := f.user(t, "designer", roles.Designer)
	buyer := f.buyer(t, "buyer")
	product := f.product(t, "poster", merchant.UserID, map[string]any{"designer_user_id": designer.UserID})

	sid := f.openSession(t, buyer, product.ID)
	if got := f.roleOf(t, sid, designer.UserID); got != model.RoleDesigner {
		t.Fatalf("designer role = %q", got)
	}
}

func TestMerchantOpeningOwnProductIsNotAddedTwice(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	merchant := f.user(t, "merchant", roles.ShopManager)
	product := f.product(t, "mug", merchant.UserID, nil)

	sid := f.openSession(t, merchant, product.ID)
	count, err := f.participants.CountBySessionID(sid)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 participant, got %d", count)
	}
	if got := f.roleOf(t, sid, merchant.UserID); got != model.RoleMerchant {
		t.Fatalf("merchant role = %q", got)
	}
}

func TestRoundRobinAssignmentCyclesThroughAgents(t *testing.T) {
	policy := defaultPolicy()
	policy.AssignAgentMode = "round_robin"
	f := newFixture(t, policy)
	a1 := f.user(t, "agent1", roles.Agent)
	a2 := f.user(t, "agent2", roles.Agent)

	want := []uint{a1.UserID, a2.UserID, a1.UserID}
	for i, agentID := range want {
		buyer := f.buyer(t, "buyer"+string(rune('a'+i)))
		sid := f.openSession(t, buyer, 0)
		if got := f.roleOf(t, sid, agentID); got != model.RoleAgent {
			t.Fatalf("session %d: expected agent %d, role %q", i, agentID, got)
		}
	}

	value, err := f.counter.Value(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if value != 3 {
		t.Fatalf("counter = %d, want 3", value)
	}
}

func TestRoundRobinUntouchedWhenSessionInsertFails(t *testing.T) {
	policy := defaultPolicy()
	policy.AssignAgentMode = "round_robin"
	f := newFixture(t, policy)
	f.user(t, "agent1", roles.Agent)
	f.user(t, "agent2", roles.Agent)
	buyer := f.buyer(t, "buyer")

	if err := f.db.Migrator().DropTable(&model.ChatSession{}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.sessions.CreateOrGet(context.Background(), buyer, 0); err == nil {
		t.Fatal("expected the insert to fail")
	}

	value, err := f.counter.Value(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if value != 0 {
		t.Fatalf("counter = %d, want 0", value)
	}
}

func TestCreateAddsAuthorDesignerOnce(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	merchant := f.user(t, "merchant", roles.ShopManager)
	buyer := f.buyer(t, "buyer")
	product := f.product(t, "mug", merchant.UserID, map[string]any{"designer_user_id": merchant.UserID})

	sid := f.openSession(t, buyer, product.ID)
	if got := f.roleOf(t, sid, merchant.UserID); got != model.RoleMerchant {
		t.Fatalf("author role = %q", got)
	}
}

func TestRoundRobinSkipsAgentOpeningTheSession(t *testing.T) {
	policy := defaultPolicy()
	policy.AssignAgentMode = "round_robin"
	f := newFixture(t, policy)
	agent := f.user(t, "agent", roles.Agent)

	sid := f.openSession(t, agent, 0)
	count, err := f.participants.CountBySessionID(sid)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected only the agent, got %d participants", count)
	}
}

func TestClaim(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	ctx := context.Background()
	author := f.user(t, "author", roles.Designer)
	buyer := f.buyer(t, "buyer")
	admin := f.user(t, "admin", roles.Administrator)
	product := f.product(t, "mug", author.UserID, nil)
	sid := f.openSession(t, buyer, product.ID)

	owner, err := f.sessions.Claim(ctx, author, sid)
	if err != nil || owner != author.UserID {
		t.Fatalf("author claim: owner %d err %v", owner, err)
	}

	if _, err := f.sessions.Claim(ctx, buyer, sid); !errors.Is(err, ErrSessionClaimed) {
		t.Fatalf("expected ErrSessionClaimed, got %v", err)
	}

	owner, err = f.sessions.Claim(ctx, admin, sid)
	if err != nil || owner != admin.UserID {
		t.Fatalf("admin override: owner %d err %v", owner, err)
	}
}

func TestClaimByOutsiderIsForbidden(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	buyer := f.buyer(t, "buyer")
	outsider := f.buyer(t, "outsider")
	sid := f.openSession(t, buyer, 0)

	if _, err := f.sessions.Claim(context.Background(), outsider, sid); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestListParticipants(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	merchant := f.user(t, "merchant", roles.ShopManager)
	buyer := f.buyer(t, "buyer")
	product := f.product(t, "mug", merchant.UserID, nil)
	sid := f.openSession(t, buyer, product.ID)

	views, err := f.sessions.ListParticipants(context.Background(), buyer, sid)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(views))
	}
	for _, v := range views {
		if v.DisplayName == "" || !strings.HasPrefix(v.Avatar, "https://www.gravatar.com/avatar/") {
			t.Fatalf("incomplete view %+v", v)
		}
	}
}
