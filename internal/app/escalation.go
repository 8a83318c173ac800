package app

import (
	"context"
	"errors"
	"log"

	"storechat/internal/model"
	"storechat/internal/repository"
)

type Presence interface {
	Ping(ctx context.Context, userID uint) error
	OnlineMap(ctx context.Context, userIDs []uint) (map[uint]bool, error)
}

type NotificationPublisher interface {
	Publish(ctx context.Context, job model.NotificationJob) error
}

// Escalation pulls a support agent into a conversation when a buyer writes
// and no merchant or agent of the session is online. At most one agent is
// added per staffing gap: once an agent is a member, further buyer messages
// do not escalate again.
type Escalation struct {
	participants *repository.ParticipantRepository
	presence     Presence
	agents       *AgentPicker
	publisher    NotificationPublisher
}

func NewEscalation(
	participants *repository.ParticipantRepository,
	presence Presence,
	agents *AgentPicker,
	publisher NotificationPublisher,
) *Escalation {
	return &Escalation{
		participants: participants,
		presence:     presence,
		agents:       agents,
		publisher:    publisher,
	}
}

func (e *Escalation) Name() string { return "escalation" }

func (e *Escalation) OnNewMessage(ctx context.Context, event NewMessageEvent) error {
	_, err := e.evaluate(ctx, event)
	return err
}

// evaluate returns the id of the agent added to the session, or 0.
func (e *Escalation) evaluate(ctx context.Context, event NewMessageEvent) (uint, error) {
	members, err := e.participants.ListBySessionID(event.SessionID)
	if err != nil {
		return 0, err
	}

	var (
		senderRole string
		staffIDs   []uint
		hasAgent   bool
	)
	for _, m := range members {
		if m.UserID == event.SenderID {
			senderRole = m.RoleSlug
		}
		if m.IsStaff() {
			staffIDs = append(staffIDs, m.UserID)
		}
		if m.RoleSlug == model.RoleAgent {
			hasAgent = true
		}
	}
	if senderRole != model.RoleBuyer {
		return 0, nil
	}

	online, err := e.presence.OnlineMap(ctx, staffIDs)
	if err != nil {
		return 0, err
	}
	for _, id := range staffIDs {
		if online[id] {
			return 0, nil
		}
	}
	if hasAgent {
		return 0, nil
	}

	agentID, err := e.agents.RoundRobin(ctx)
	if errors.Is(err, ErrNoAgents) {
		log.Printf("escalation skipped for session %d: no agents configured", event.SessionID)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	added, err := e.participants.AddIfAbsent(event.SessionID, agentID, model.RoleAgent)
	if err != nil {
		return 0, err
	}
	if !added {
		return 0, nil
	}

	if e.publisher != nil {
		job := model.NotificationJob{
			Kind:      model.NotificationNeedsAttention,
			SessionID: event.SessionID,
			UserID:    agentID,
		}
		if err := e.publisher.Publish(ctx, job); err != nil {
			log.Printf("publish needs-attention for session %d failed: %v", event.SessionID, err)
		}
	}
	return agentID, nil
}
