package model

import "time"

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"size:128;not null;uniqueIndex" json:"email"`
	DisplayName  string     `gorm:"size:128" json:"display_name"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Roles        []UserRole `gorm:"foreignKey:UserID" json:"roles,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UserRole is a platform role held by a user (administrator, shop_manager,
// agent, designer, customer). A user may hold several.
type UserRole struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_user_role" json:"user_id"`
	Role   string `gorm:"size:32;not null;uniqueIndex:idx_user_role;index" json:"role"`
}

func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Role)
	}
	return names
}

func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
