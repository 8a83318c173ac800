package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storechat/internal/model"
)

const MaxFetchLimit = 200

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(id uint) (*model.Message, error) {
	var message model.Message
	if err := r.db.First(&message, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message failed: %w", err)
	}
	return &message, nil
}

// ListAfter returns messages of a session with id > afterID in id order.
func (r *MessageRepository) ListAfter(sessionID, afterID uint, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > MaxFetchLimit {
		limit = MaxFetchLimit
	}

	var messages []model.Message
	if err := r.db.Where("session_id = ? AND id > ?", sessionID, afterID).Order("id ASC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) MaxID(sessionID uint) (uint, error) {
	var maxID uint
	if err := r.db.Model(&model.Message{}).Where("session_id = ?", sessionID).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
		return 0, fmt.Errorf("query max message id failed: %w", err)
	}
	return maxID, nil
}

// MarkRead flags every unread message in the session not sent by readerID and
// moves the reader's read cursor to the newest message. It returns that id.
func (r *MessageRepository) MarkRead(sessionID, readerID uint, now time.Time) (uint, error) {
	var lastID uint
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Message{}).
			Where("session_id = ? AND sender_id <> ? AND is_read = ?", sessionID, readerID, false).
			Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Message{}).Where("session_id = ?", sessionID).Select("COALESCE(MAX(id), 0)").Scan(&lastID).Error; err != nil {
			return err
		}
		return tx.Model(&model.Participant{}).
			Where("session_id = ? AND user_id = ?", sessionID, readerID).
			Updates(map[string]any{"last_read_message_id": lastID, "last_seen": now}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("mark messages read failed: %w", err)
	}
	return lastID, nil
}
