package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storechat/internal/model"
)

const AgentRoundRobinCounter = "agent_round_robin"

// CounterRepository is a durable named counter. Next is safe for concurrent
// callers: the increment holds the row lock until the value is read back.
type CounterRepository struct {
	db   *gorm.DB
	name string
}

func NewCounterRepository(db *gorm.DB, name string) *CounterRepository {
	return &CounterRepository{db: db, name: name}
}

// Next increments the counter and returns the value it had before.
func (r *CounterRepository) Next(ctx context.Context) (int64, error) {
	var current model.Counter
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Counter{Name: r.name}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Counter{}).Where("name = ?", r.name).Update("value", gorm.Expr("value + ?", 1)).Error; err != nil {
			return err
		}
		return tx.Where("name = ?", r.name).Take(&current).Error
	})
	if err != nil {
		return 0, fmt.Errorf("advance counter %s failed: %w", r.name, err)
	}
	return current.Value - 1, nil
}

// Value reads the counter without advancing it.
func (r *CounterRepository) Value(ctx context.Context) (int64, error) {
	var current model.Counter
	res := r.db.WithContext(ctx).Where("name = ?", r.name).Limit(1).Find(&current)
	if res.Error != nil {
		return 0, fmt.Errorf("read counter %s failed: %w", r.name, res.Error)
	}
	return current.Value, nil
}
