package repository

import (
	"context"
	"errors"

	"github.com/arslanov/padlock/internal/app/model"
	"github.com/arslanov/padlock/internal/errs"
	"gorm.io/gorm"
)

// PadRepository defines the data access contract for pads.
type PadRepository interface {
	Create(ctx context.Context, pad *model.Pad) error
	GetByID(ctx context.Context, id string) (*model.Pad, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListIDs(ctx context.Context) ([]string, error)
	UpdateContent(ctx context.Context, id, content string) error
}

type padRepository struct {
	db *gorm.DB
}

// NewPadRepository returns a GORM-backed PadRepository.
func NewPadRepository(db *gorm.DB) PadRepository {
	return &padRepository{db: db}
}

func (r *padRepository) Create(ctx context.Context, pad *model.Pad) error {
	if err := r.db.WithContext(ctx).Create(pad).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *padRepository) GetByID(ctx context.Context, id string) (*model.Pad, error) {
	var pad model.Pad
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pad).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &pad, nil
}

func (r *padRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Pad{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListIDs returns every pad identifier. Used to warm the existence filter at
// startup; the pad population is expected to stay small.
func (r *padRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&model.Pad{}).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *padRepository) UpdateContent(ctx context.Context, id, content string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Pad{}).
		Where("id = ?", id).
		Update("content", content)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}
