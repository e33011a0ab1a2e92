package repository

import (
	"context"
	"errors"
	"time"

	"github.com/arslanov/padlock/internal/app/model"
	"github.com/arslanov/padlock/internal/errs"
	"gorm.io/gorm"
)

// AttachmentRepository defines the data access contract for attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, att *model.Attachment) error
	GetByID(ctx context.Context, padID, id string) (*model.Attachment, error)
	ListLive(ctx context.Context, padID string, now time.Time) ([]model.Attachment, error)
	ListExpired(ctx context.Context, padID string, now time.Time) ([]model.Attachment, error)
	PadsWithExpired(ctx context.Context, now time.Time) ([]string, error)
	Delete(ctx context.Context, id string) error
}

type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository returns a GORM-backed AttachmentRepository.
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, att *model.Attachment) error {
	return r.db.WithContext(ctx).Create(att).Error
}

func (r *attachmentRepository) GetByID(ctx context.Context, padID, id string) (*model.Attachment, error) {
	var att model.Attachment
	if err := r.db.WithContext(ctx).
		Where("id = ? AND pad_id = ?", id, padID).
		First(&att).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &att, nil
}

func (r *attachmentRepository) ListLive(ctx context.Context, padID string, now time.Time) ([]model.Attachment, error) {
	var result []model.Attachment
	if err := r.db.WithContext(ctx).
		Where("pad_id = ? AND expires_at > ?", padID, now).
		Order("uploaded_at ASC").
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *attachmentRepository) ListExpired(ctx context.Context, padID string, now time.Time) ([]model.Attachment, error) {
	var result []model.Attachment
	if err := r.db.WithContext(ctx).
		Where("pad_id = ? AND expires_at <= ?", padID, now).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// PadsWithExpired returns the distinct pad IDs that currently own at least one
// expired attachment. The sweeper uses it to bound each pass to pads with work.
func (r *attachmentRepository) PadsWithExpired(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&model.Attachment{}).
		Distinct("pad_id").
		Where("expires_at <= ?", now).
		Pluck("pad_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Delete removes one attachment row. Deleting an already-removed row is not an
// error so lazy purge and the sweeper can race safely.
func (r *attachmentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Attachment{}).Error
}
