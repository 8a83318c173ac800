package app

import (
	"context"
	"math/rand/v2"

	"storechat/internal/repository"
	"storechat/internal/roles"
)

// Counter hands out consecutive positions. No two callers may observe the
// same value.
type Counter interface {
	Next(ctx context.Context) (int64, error)
}

// AgentPicker selects support agents from the pool of users holding the
// agent platform role.
type AgentPicker struct {
	users   *repository.UserRepository
	counter Counter
	intn    func(n int) int
}

func NewAgentPicker(users *repository.UserRepository, counter Counter) *AgentPicker {
	return &AgentPicker{
		users:   users,
		counter: counter,
		intn:    rand.IntN,
	}
}

// RoundRobin advances the shared rotation counter once and returns the agent
// at that position. ErrNoAgents is returned, without touching the counter,
// when the pool is empty.
func (p *AgentPicker) RoundRobin(ctx context.Context) (uint, error) {
	pool, err := p.users.ListIDsByRole(roles.Agent)
	if err != nil {
		return 0, err
	}
	if len(pool) == 0 {
		return 0, ErrNoAgents
	}
	idx, err := p.counter.Next(ctx)
	if err != nil {
		return 0, err
	}
	return pool[idx%int64(len(pool))], nil
}

// Random draws one agent uniformly.
func (p *AgentPicker) Random() (uint, error) {
	pool, err := p.users.ListIDsByRole(roles.Agent)
	if err != nil {
		return 0, err
	}
	if len(pool) == 0 {
		return 0, ErrNoAgents
	}
	return pool[p.intn(len(pool))], nil
}
