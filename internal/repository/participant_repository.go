package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storechat/internal/model"
)

type ParticipantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// AddIfAbsent inserts the membership unless (session, user) already exists.
// It reports whether a row was inserted.
func (r *ParticipantRepository) AddIfAbsent(sessionID, userID uint, roleSlug string) (bool, error) {
	p := model.Participant{
		SessionID: sessionID,
		UserID:    userID,
		RoleSlug:  roleSlug,
	}
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
	if res.Error != nil {
		return false, fmt.Errorf("add participant failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ParticipantRepository) Get(sessionID, userID uint) (*model.Participant, error) {
	var p model.Participant
	if err := r.db.Where("session_id = ? AND user_id = ?", sessionID, userID).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get participant failed: %w", err)
	}
	return &p, nil
}

func (r *ParticipantRepository) ListBySessionID(sessionID uint) ([]model.Participant, error) {
	var list []model.Participant
	if err := r.db.Where("session_id = ?", sessionID).Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list participants failed: %w", err)
	}
	return list, nil
}

func (r *ParticipantRepository) ListUserIDs(sessionID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.Participant{}).Where("session_id = ?", sessionID).Order("id ASC").Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list participant ids failed: %w", err)
	}
	return ids, nil
}

func (r *ParticipantRepository) CountBySessionID(sessionID uint) (int64, error) {
	var n int64
	if err := r.db.Model(&model.Participant{}).Where("session_id = ?", sessionID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count participants failed: %w", err)
	}
	return n, nil
}
