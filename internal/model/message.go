package model

import "time"

type Message struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	SessionID    uint       `gorm:"not null;index" json:"session_id"`
	SenderID     uint       `gorm:"not null;index" json:"sender_id"`
	Body         *string    `gorm:"type:text" json:"message"`
	AttachmentID *uint      `json:"attachment_id"`
	IsRead       bool       `gorm:"not null;default:false" json:"is_read"`
	ReadAt       *time.Time `json:"read_at"`
	CreatedAt    time.Time  `json:"created_at"`
}
