package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arslanov/padlock/internal/app/model"
	"github.com/arslanov/padlock/internal/app/repository"
	"github.com/arslanov/padlock/internal/errs"
	infraprom "github.com/arslanov/padlock/internal/infra/prometheus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlobStore abstracts the object storage backend holding attachment payloads.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Upload carries an incoming file before validation.
type Upload struct {
	Filename string
	Data     []byte
}

// Download is the authenticated attachment read result.
type Download struct {
	Attachment model.Attachment
	Data       []byte
}

// AttachmentService manages attachment metadata, payloads, and expiration.
type AttachmentService struct {
	logger      *zap.Logger
	attachments repository.AttachmentRepository
	blobs       BlobStore
	gate        *AccessGate
	activity    activityRecorder

	maxUploadBytes int64
	lifetime       time.Duration
	now            func() time.Time
}

// AttachmentServiceDeps groups dependencies required by the attachment service.
type AttachmentServiceDeps struct {
	Logger         *zap.Logger
	Attachments    repository.AttachmentRepository
	Blobs          BlobStore
	Gate           *AccessGate
	Activity       activityRecorder
	MaxUploadBytes int64
	Lifetime       time.Duration

	// Now overrides the clock; tests use it to step past expiry.
	Now func() time.Time
}

// NewAttachmentService returns an attachment service with the provided deps.
func NewAttachmentService(deps AttachmentServiceDeps) *AttachmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	lifetime := deps.Lifetime
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	maxBytes := deps.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &AttachmentService{
		logger:         logger,
		attachments:    deps.Attachments,
		blobs:          deps.Blobs,
		gate:           deps.Gate,
		activity:       deps.Activity,
		maxUploadBytes: maxBytes,
		lifetime:       lifetime,
		now:            now,
	}
}

// Upload validates and stores a new attachment. Size and format checks run
// before any store mutation; the payload goes to object storage first and the
// metadata row second, with the object rolled back if the insert fails.
func (s *AttachmentService) Upload(ctx context.Context, padID string, creds Credentials, up Upload) (*model.Attachment, error) {
	if _, err := s.gate.Authorize(ctx, padID, creds); err != nil {
		return nil, err
	}

	if int64(len(up.Data)) > s.maxUploadBytes {
		infraprom.UploadRejectedTotal.WithLabelValues("too_large").Inc()
		return nil, errs.ErrTooLarge
	}

	contentType, ok := DetectFormat(up.Data)
	if !ok {
		infraprom.UploadRejectedTotal.WithLabelValues("invalid_format").Inc()
		return nil, errs.ErrInvalidFile
	}

	uploadedAt := s.now()
	att := &model.Attachment{
		ID:          uuid.New().String(),
		PadID:       padID,
		Filename:    up.Filename,
		Size:        int64(len(up.Data)),
		ContentType: contentType,
		UploadedAt:  uploadedAt,
		ExpiresAt:   uploadedAt.Add(s.lifetime),
	}
	att.ObjectKey = fmt.Sprintf("%s/%s", padID, att.ID)

	if err := s.blobs.Put(ctx, att.ObjectKey, up.Data, contentType); err != nil {
		return nil, fmt.Errorf("%w: store payload: %v", errs.ErrUpstreamUnavailable, err)
	}

	if err := s.attachments.Create(ctx, att); err != nil {
		// Keep payload and metadata together: undo the object write.
		if delErr := s.blobs.Delete(ctx, att.ObjectKey); delErr != nil {
			s.logger.Error("orphaned payload after failed metadata insert",
				zap.String("object_key", att.ObjectKey), zap.Error(delErr))
		}
		return nil, fmt.Errorf("store attachment metadata: %w", err)
	}

	infraprom.UploadsTotal.Inc()
	if s.activity != nil {
		if err := s.activity.Publish(padID, model.ActivityUpload, up.Filename); err != nil {
			s.logger.Warn("activity publish failed", zap.String("pad_id", padID), zap.Error(err))
		}
	}

	return att, nil
}

// Get returns an attachment's metadata and payload. An attachment past its
// expiry is purged on the spot and reported as ErrExpired, distinct from
// ErrNotFound, so clients can show a dedicated message.
func (s *AttachmentService) Get(ctx context.Context, padID string, creds Credentials, attachmentID string) (*Download, error) {
	if _, err := s.gate.Authorize(ctx, padID, creds); err != nil {
		return nil, err
	}

	att, err := s.attachments.GetByID(ctx, padID, attachmentID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("load attachment: %w", err)
	}

	if att.Expired(s.now()) {
		s.purgeOne(ctx, att)
		return nil, errs.ErrExpired
	}

	data, err := s.blobs.Get(ctx, att.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch payload: %v", errs.ErrUpstreamUnavailable, err)
	}

	return &Download{Attachment: *att, Data: data}, nil
}

// ListLive returns the pad's attachments that have not yet expired.
func (s *AttachmentService) ListLive(ctx context.Context, padID string) ([]model.Attachment, error) {
	return s.attachments.ListLive(ctx, padID, s.now())
}

// PurgeExpired removes every expired attachment of one pad, payload and
// metadata together. It is idempotent: the lazy access path and the sweeper
// both call it and either safely no-ops if the other already purged an entry.
// Per-entry failures are logged and do not stop the remaining entries.
func (s *AttachmentService) PurgeExpired(ctx context.Context, padID string) (int, error) {
	expired, err := s.attachments.ListExpired(ctx, padID, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired attachments: %w", err)
	}

	purged := 0
	for i := range expired {
		if s.purgeOne(ctx, &expired[i]) {
			purged++
		}
	}
	return purged, nil
}

// PadsWithExpired exposes the sweep work list to the expiration sweeper.
func (s *AttachmentService) PadsWithExpired(ctx context.Context) ([]string, error) {
	return s.attachments.PadsWithExpired(ctx, s.now())
}

// purgeOne deletes payload then metadata for a single attachment, best effort.
// A payload that is already gone does not block the metadata delete.
func (s *AttachmentService) purgeOne(ctx context.Context, att *model.Attachment) bool {
	if err := s.blobs.Delete(ctx, att.ObjectKey); err != nil {
		infraprom.SweepErrorsTotal.Inc()
		s.logger.Warn("payload delete failed",
			zap.String("pad_id", att.PadID),
			zap.String("attachment_id", att.ID),
			zap.Error(err))
	}

	if err := s.attachments.Delete(ctx, att.ID); err != nil {
		infraprom.SweepErrorsTotal.Inc()
		s.logger.Warn("metadata delete failed",
			zap.String("pad_id", att.PadID),
			zap.String("attachment_id", att.ID),
			zap.Error(err))
		return false
	}

	infraprom.SweptAttachmentsTotal.Inc()
	return true
}
