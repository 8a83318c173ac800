package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storechat/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateWithParticipants inserts the session and its initial members in one
// transaction. Members already present are skipped.
func (r *SessionRepository) CreateWithParticipants(session *model.ChatSession, participants []model.Participant) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		for _, p := range participants {
			p.ID = 0
			p.SessionID = session.ID
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(id uint) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := r.db.First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

// FindLatestForUserAndProduct returns the newest session about productID in
// which userID participates.
func (r *SessionRepository) FindLatestForUserAndProduct(userID, productID uint) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Model(&model.ChatSession{}).
		Joins("JOIN participants ON participants.session_id = chat_sessions.id AND participants.user_id = ?", userID).
		Where("chat_sessions.product_id = ?", productID).
		Order("chat_sessions.id DESC").
		Take(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session by product failed: %w", err)
	}
	return &session, nil
}

// Claim makes userID the owner. Without override the claim only succeeds when
// the session is unowned or already owned by userID.
func (r *SessionRepository) Claim(sessionID, userID uint, override bool) (bool, error) {
	q := r.db.Model(&model.ChatSession{}).Where("id = ?", sessionID)
	if !override {
		q = q.Where("(owner_id IS NULL OR owner_id = ?)", userID)
	}
	res := q.Update("owner_id", userID)
	if res.Error != nil {
		return false, fmt.Errorf("claim session failed: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// MySQL reports zero affected rows when the value is unchanged.
	session, err := r.GetByID(sessionID)
	if err != nil {
		return false, err
	}
	return session != nil && session.OwnerID != nil && *session.OwnerID == userID, nil
}
