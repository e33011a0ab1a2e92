package repository

import (
	"context"

	"github.com/arslanov/padlock/internal/app/model"
	"gorm.io/gorm"
)

// ActivityEventRepository defines the data access contract for activity events.
type ActivityEventRepository interface {
	Create(ctx context.Context, event *model.ActivityEvent) error
	ListByPad(ctx context.Context, padID string, limit int) ([]model.ActivityEvent, error)
}

type activityEventRepository struct {
	db *gorm.DB
}

// NewActivityEventRepository returns a GORM-backed ActivityEventRepository.
func NewActivityEventRepository(db *gorm.DB) ActivityEventRepository {
	return &activityEventRepository{db: db}
}

func (r *activityEventRepository) Create(ctx context.Context, event *model.ActivityEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *activityEventRepository) ListByPad(ctx context.Context, padID string, limit int) ([]model.ActivityEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var result []model.ActivityEvent
	if err := r.db.WithContext(ctx).
		Where("pad_id = ?", padID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}
