package model

import (
	"strings"
	"time"
)

// Attachment is an uploaded file owned by one chat session and its uploader.
type Attachment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  uint      `gorm:"not null;index" json:"session_id"`
	UploaderID uint      `gorm:"not null;index" json:"uploader_id"`
	FileName   string    `gorm:"size:255;not null" json:"file_name"`
	MimeType   string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	StorageKey string    `gorm:"size:512;not null" json:"-"`
	ThumbKey   string    `gorm:"size:512" json:"-"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	PageCount  int       `json:"page_count,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (a *Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}
