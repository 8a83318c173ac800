package model

// Counter is a named, persisted monotonically increasing value.
type Counter struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value int64  `gorm:"not null;default:0"`
}

// Tables lists every model managed by auto-migration.
func Tables() []any {
	return []any{
		&User{},
		&UserRole{},
		&Product{},
		&ChatSession{},
		&Participant{},
		&Message{},
		&Attachment{},
		&Counter{},
	}
}
