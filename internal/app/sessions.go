package app

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"

	"storechat/internal/config"
	"storechat/internal/model"
	"storechat/internal/repository"
	"storechat/internal/roles"
)

type SessionService struct {
	sessions     *repository.SessionRepository
	participants *repository.ParticipantRepository
	products     *repository.ProductRepository
	users        *repository.UserRepository
	agents       *AgentPicker
	gate         *Gate
	policy       ChatPolicy
}

type CreateSessionResult struct {
	SessionID uint `json:"session_id"`
	Created   bool `json:"created"`
}

type ParticipantView struct {
	UserID      uint   `json:"user_id"`
	RoleSlug    string `json:"role_slug"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

func NewSessionService(
	sessions *repository.SessionRepository,
	participants *repository.ParticipantRepository,
	products *repository.ProductRepository,
	users *repository.UserRepository,
	agents *AgentPicker,
	gate *Gate,
	policy ChatPolicy,
) *SessionService {
	return &SessionService{
		sessions:     sessions,
		participants: participants,
		products:     products,
		users:        users,
		agents:       agents,
		gate:         gate,
		policy:       policy,
	}
}

// CreateOrGet returns the caller's existing session for the product, or opens
// a new one and assigns its initial members.
func (s *SessionService) CreateOrGet(ctx context.Context, actor Actor, productID uint) (*CreateSessionResult, error) {
	if actor.UserID == 0 {
		return nil, ErrUnauthenticated
	}

	var product *model.Product
	if productID != 0 {
		existing, err := s.sessions.FindLatestForUserAndProduct(actor.UserID, productID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &CreateSessionResult{SessionID: existing.ID, Created: false}, nil
		}

		product, err = s.products.GetByID(productID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, ErrProductNotFound
		}
	}

	session := &model.ChatSession{Title: "Chat: General"}
	if product != nil {
		session.ProductID = &product.ID
		session.Title = "Chat: " + product.Name
	}

	if err := s.sessions.CreateWithParticipants(session, s.initialMembers(actor, product)); err != nil {
		return nil, err
	}

	// The rotation only advances for sessions that were actually stored.
	agentID, err := s.pickAgent(ctx)
	if err != nil {
		return nil, err
	}
	if agentID != 0 && agentID != actor.UserID {
		if _, err := s.participants.AddIfAbsent(session.ID, agentID, model.RoleAgent); err != nil {
			return nil, err
		}
	}
	return &CreateSessionResult{SessionID: session.ID, Created: true}, nil
}

func (s *SessionService) initialMembers(actor Actor, product *model.Product) []model.Participant {
	members := []model.Participant{{UserID: actor.UserID, RoleSlug: roles.ChatRoleFor(actor.Roles)}}

	if product != nil && s.policy.AutoAssignMerchant {
		if product.AuthorID != 0 && product.AuthorID != actor.UserID {
			members = append(members, model.Participant{UserID: product.AuthorID, RoleSlug: model.RoleMerchant})
		}
	}

	if product != nil && s.policy.AutoAssignDesigner {
		designer := product.MetaUserID(s.policy.DesignerMetaKey)
		if designer != 0 && designer != actor.UserID && !(s.policy.AutoAssignMerchant && designer == product.AuthorID) {
			members = append(members, model.Participant{UserID: designer, RoleSlug: model.RoleDesigner})
		}
	}

	return members
}

func (s *SessionService) pickAgent(ctx context.Context) (uint, error) {
	var (
		agentID uint
		err     error
	)
	switch s.policy.AssignAgentMode {
	case config.AgentModeNone, "":
		return 0, nil
	case config.AgentModeRandom:
		agentID, err = s.agents.Random()
	default:
		agentID, err = s.agents.RoundRobin(ctx)
	}
	if errors.Is(err, ErrNoAgents) {
		return 0, nil
	}
	return agentID, err
}

// Claim makes the caller the session's sole owner. Holders of the manage
// capability may take over a session someone else claimed.
func (s *SessionService) Claim(ctx context.Context, actor Actor, sessionID uint) (uint, error) {
	session, err := s.gate.MayView(actor, sessionID)
	if err != nil {
		return 0, err
	}
	// Managers pass the gate without membership; pull them in when a rule allows.
	if actor.Can(roles.CapManage) {
		if _, err := s.gate.EnsureMember(session, actor); err != nil {
			return 0, err
		}
	}
	ok, err := s.sessions.Claim(sessionID, actor.UserID, actor.Can(roles.CapManage))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrSessionClaimed
	}
	return actor.UserID, nil
}

func (s *SessionService) ListParticipants(ctx context.Context, actor Actor, sessionID uint) ([]ParticipantView, error) {
	if _, err := s.gate.MayView(actor, sessionID); err != nil {
		return nil, err
	}

	members, err := s.participants.ListBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users, err := s.users.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]ParticipantView, 0, len(members))
	for _, m := range members {
		u, ok := byID[m.UserID]
		if !ok {
			log.Printf("participant %d of session %d has no user record", m.UserID, sessionID)
			continue
		}
		out = append(out, ParticipantView{
			UserID:      m.UserID,
			RoleSlug:    m.RoleSlug,
			DisplayName: u.Name(),
			Avatar:      avatarURL(u.Email, 48),
		})
	}
	return out, nil
}

func avatarURL(email string, size int) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&d=mp", hex.EncodeToString(sum[:]), size)
}
