package model

import "time"

const (
	RoleBuyer    = "buyer"
	RoleMerchant = "merchant"
	RoleDesigner = "designer"
	RoleAgent    = "agent"
)

// Participant is a user's membership in a chat session. (session_id, user_id)
// is unique.
type Participant struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	SessionID         uint       `gorm:"not null;uniqueIndex:idx_participant_session_user;index" json:"session_id"`
	UserID            uint       `gorm:"not null;uniqueIndex:idx_participant_session_user;index" json:"user_id"`
	RoleSlug          string     `gorm:"size:32;not null" json:"role_slug"`
	LastSeen          *time.Time `json:"last_seen,omitempty"`
	LastReadMessageID *uint      `json:"last_read_message_id,omitempty"`
}

func (p Participant) IsStaff() bool {
	return p.RoleSlug == RoleMerchant || p.RoleSlug == RoleAgent
}
