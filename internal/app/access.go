package app

import (
	"storechat/internal/model"
	"storechat/internal/repository"
	"storechat/internal/roles"
)

// Gate authorizes access to a chat session. Users who are not yet members
// may be pulled in on first access when their role or their relationship to
// the session's product allows it.
type Gate struct {
	sessions     *repository.SessionRepository
	participants *repository.ParticipantRepository
	products     *repository.ProductRepository
	policy       ChatPolicy
}

func NewGate(
	sessions *repository.SessionRepository,
	participants *repository.ParticipantRepository,
	products *repository.ProductRepository,
	policy ChatPolicy,
) *Gate {
	return &Gate{
		sessions:     sessions,
		participants: participants,
		products:     products,
		policy:       policy,
	}
}

// MayView returns the session when actor may read it.
func (g *Gate) MayView(actor Actor, sessionID uint) (*model.ChatSession, error) {
	if actor.UserID == 0 {
		return nil, ErrUnauthenticated
	}
	if sessionID == 0 {
		return nil, ErrInvalidInput.WithMessage("session_id is required")
	}

	session, err := g.sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if actor.Can(roles.CapManage) {
		return session, nil
	}

	member, err := g.participants.Get(sessionID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return session, nil
	}

	joined, err := g.AutoJoin(session, actor)
	if err != nil {
		return nil, err
	}
	if !joined {
		return nil, ErrForbidden
	}
	return session, nil
}

// MaySend is MayView plus the send capability.
func (g *Gate) MaySend(actor Actor, sessionID uint) (*model.ChatSession, error) {
	session, err := g.MayView(actor, sessionID)
	if err != nil {
		return nil, err
	}
	if !actor.Can(roles.CapSend) {
		return nil, ErrForbidden
	}
	return session, nil
}

// EnsureMember reports whether actor is, or has just become, a participant.
func (g *Gate) EnsureMember(session *model.ChatSession, actor Actor) (bool, error) {
	member, err := g.participants.Get(session.ID, actor.UserID)
	if err != nil {
		return false, err
	}
	if member != nil {
		return true, nil
	}
	return g.AutoJoin(session, actor)
}

// AutoJoin adds actor to the session when the first matching rule applies:
// staff roles (if enabled), the product author, the product's designer.
func (g *Gate) AutoJoin(session *model.ChatSession, actor Actor) (bool, error) {
	role, err := g.autoJoinRole(session, actor)
	if err != nil || role == "" {
		return false, err
	}
	if _, err := g.participants.AddIfAbsent(session.ID, actor.UserID, role); err != nil {
		return false, err
	}
	return true, nil
}

func (g *Gate) autoJoinRole(session *model.ChatSession, actor Actor) (string, error) {
	if g.policy.AutoJoinRoles {
		if actor.Has(roles.Agent) || actor.Has(roles.Administrator) {
			return model.RoleAgent, nil
		}
		if actor.Has(roles.ShopManager) {
			return model.RoleMerchant, nil
		}
	}

	if session.ProductID == nil {
		return "", nil
	}
	product, err := g.products.GetByID(*session.ProductID)
	if err != nil || product == nil {
		return "", err
	}
	if product.AuthorID != 0 && product.AuthorID == actor.UserID {
		return model.RoleMerchant, nil
	}
	if designer := product.MetaUserID(g.policy.DesignerMetaKey); designer != 0 && designer == actor.UserID {
		return model.RoleDesigner, nil
	}
	return "", nil
}
