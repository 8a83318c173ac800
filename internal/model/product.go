package model

import (
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// Product is the storefront catalog entry a chat session can be tied to.
// Meta holds free-form product metadata such as the assigned designer.
type Product struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	AuthorID  uint              `gorm:"index" json:"author_id"`
	Name      string            `gorm:"size:256;not null" json:"name"`
	Permalink string            `gorm:"size:512" json:"permalink"`
	Meta      datatypes.JSONMap `json:"meta"`
	CreatedAt time.Time         `json:"created_at"`
}

// MetaUserID reads a user id stored under key. Numbers (including the
// json.Number values gorm decodes JSON columns into) and numeric strings are
// accepted; anything else yields 0.
func (p *Product) MetaUserID(key string) uint {
	if p == nil || p.Meta == nil || key == "" {
		return 0
	}
	switch v := p.Meta[key].(type) {
	case float64:
		if v > 0 {
			return uint(v)
		}
	case int:
		if v > 0 {
			return uint(v)
		}
	case int64:
		if v > 0 {
			return uint(v)
		}
	case json.Number:
		if id, err := v.Int64(); err == nil && id > 0 {
			return uint(id)
		}
	case uint:
		return v
	case string:
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			return uint(id)
		}
	}
	return 0
}
