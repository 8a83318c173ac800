package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"storechat/internal/model"
)

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Create(attachment *model.Attachment) error {
	if err := r.db.Create(attachment).Error; err != nil {
		return fmt.Errorf("create attachment failed: %w", err)
	}
	return nil
}

func (r *AttachmentRepository) GetByID(id uint) (*model.Attachment, error) {
	var attachment model.Attachment
	if err := r.db.First(&attachment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attachment failed: %w", err)
	}
	return &attachment, nil
}

func (r *AttachmentRepository) ListByIDs(ids []uint) ([]model.Attachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []model.Attachment
	if err := r.db.Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list attachments failed: %w", err)
	}
	return list, nil
}

func (r *AttachmentRepository) CountBySessionID(sessionID uint) (int64, error) {
	var n int64
	if err := r.db.Model(&model.Attachment{}).Where("session_id = ?", sessionID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count attachments failed: %w", err)
	}
	return n, nil
}
