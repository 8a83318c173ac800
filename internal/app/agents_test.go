package app

import (
	"context"
	"errors"
	"testing"

	"storechat/internal/roles"
)

func TestRoundRobinWrapsAround(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	a := f.user(t, "a", roles.Agent)
	b := f.user(t, "b", roles.Agent)
	c := f.user(t, "c", roles.Agent)
	f.user(t, "customer", roles.Customer)

	want := []uint{a.UserID, b.UserID, c.UserID, a.UserID, b.UserID}
	for i, id := range want {
		got, err := f.agents.RoundRobin(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if got != id {
			t.Fatalf("pick %d = %d, want %d", i, got, id)
		}
	}
}

func TestPickersWithEmptyPool(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	ctx := context.Background()

	if _, err := f.agents.RoundRobin(ctx); !errors.Is(err, ErrNoAgents) {
		t.Fatalf("expected ErrNoAgents, got %v", err)
	}
	if _, err := f.agents.Random(); !errors.Is(err, ErrNoAgents) {
		t.Fatalf("expected ErrNoAgents, got %v", err)
	}
	if v, _ := f.counter.Value(ctx); v != 0 {
		t.Fatalf("counter advanced to %d", v)
	}
}

func TestRandomUsesInjectedSource(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	f.user(t, "a", roles.Agent)
	b := f.user(t, "b", roles.Agent)
	f.agents.intn = func(n int) int { return n - 1 }

	got, err := f.agents.Random()
	if err != nil {
		t.Fatal(err)
	}
	if got != b.UserID {
		t.Fatalf("got %d, want %d", got, b.UserID)
	}
}
