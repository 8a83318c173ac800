package app

import (
	"context"

	"storechat/internal/repository"
)

type Typing interface {
	SetTyping(ctx context.Context, sessionID, userID uint) error
	Typing(ctx context.Context, sessionID uint, candidates []uint) ([]uint, error)
}

// RealtimeService serves the polling-based typing and presence hints.
type RealtimeService struct {
	gate         *Gate
	participants *repository.ParticipantRepository
	presence     Presence
	typing       Typing
}

func NewRealtimeService(
	gate *Gate,
	participants *repository.ParticipantRepository,
	presence Presence,
	typing Typing,
) *RealtimeService {
	return &RealtimeService{
		gate:         gate,
		participants: participants,
		presence:     presence,
		typing:       typing,
	}
}

func (s *RealtimeService) SetTyping(ctx context.Context, actor Actor, sessionID uint) error {
	if _, err := s.gate.MayView(actor, sessionID); err != nil {
		return err
	}
	return s.typing.SetTyping(ctx, sessionID, actor.UserID)
}

// OthersTyping lists participants other than actor whose typing flag is live.
func (s *RealtimeService) OthersTyping(ctx context.Context, actor Actor, sessionID uint) ([]uint, error) {
	if actor.UserID == 0 {
		return nil, ErrUnauthenticated
	}
	if sessionID == 0 {
		return nil, ErrInvalidInput.WithMessage("session_id is required")
	}
	ids, err := s.participants.ListUserIDs(sessionID)
	if err != nil {
		return nil, err
	}
	others := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != actor.UserID {
			others = append(others, id)
		}
	}
	typing, err := s.typing.Typing(ctx, sessionID, others)
	if err != nil {
		return nil, err
	}
	if typing == nil {
		typing = []uint{}
	}
	return typing, nil
}

func (s *RealtimeService) Ping(ctx context.Context, actor Actor) error {
	if actor.UserID == 0 {
		return ErrUnauthenticated
	}
	return s.presence.Ping(ctx, actor.UserID)
}

// PresenceLookup reports online status for the session's participants. When
// requested is non-empty only those participants are reported.
func (s *RealtimeService) PresenceLookup(ctx context.Context, actor Actor, sessionID uint, requested []uint) (map[uint]bool, error) {
	if _, err := s.gate.MayView(actor, sessionID); err != nil {
		return nil, err
	}
	ids, err := s.participants.ListUserIDs(sessionID)
	if err != nil {
		return nil, err
	}
	if len(requested) > 0 {
		want := make(map[uint]bool, len(requested))
		for _, id := range requested {
			want[id] = true
		}
		filtered := ids[:0]
		for _, id := range ids {
			if want[id] {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}
	return s.presence.OnlineMap(ctx, ids)
}
