package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arslanov/padlock/internal/app/model"
	"github.com/arslanov/padlock/internal/errs"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

type mockAttachmentRepository struct {
	createFn      func(ctx context.Context, att *model.Attachment) error
	getFn         func(ctx context.Context, padID, id string) (*model.Attachment, error)
	listLiveFn    func(ctx context.Context, padID string, now time.Time) ([]model.Attachment, error)
	listExpiredFn func(ctx context.Context, padID string, now time.Time) ([]model.Attachment, error)
	padsFn        func(ctx context.Context, now time.Time) ([]string, error)
	deleteFn      func(ctx context.Context, id string) error
}

func (m *mockAttachmentRepository) Create(ctx context.Context, att *model.Attachment) error {
	if m.createFn != nil {
		return m.createFn(ctx, att)
	}
	return nil
}

func (m *mockAttachmentRepository) GetByID(ctx context.Context, padID, id string) (*model.Attachment, error) {
	if m.getFn != nil {
		return m.getFn(ctx, padID, id)
	}
	return nil, errs.ErrNotFound
}

func (m *mockAttachmentRepository) ListLive(ctx context.Context, padID string, now time.Time) ([]model.Attachment, error) {
	if m.listLiveFn != nil {
		return m.listLiveFn(ctx, padID, now)
	}
	return nil, nil
}

func (m *mockAttachmentRepository) ListExpired(ctx context.Context, padID string, now time.Time) ([]model.Attachment, error) {
	if m.listExpiredFn != nil {
		return m.listExpiredFn(ctx, padID, now)
	}
	return nil, nil
}

func (m *mockAttachmentRepository) PadsWithExpired(ctx context.Context, now time.Time) ([]string, error) {
	if m.padsFn != nil {
		return m.padsFn(ctx, now)
	}
	return nil, nil
}

func (m *mockAttachmentRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockBlobStore struct {
	putFn    func(ctx context.Context, key string, data []byte, contentType string) error
	getBlobs map[string][]byte
	deleted  []string
	deleteFn func(ctx context.Context, key string) error
}

func (m *mockBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if m.putFn != nil {
		return m.putFn(ctx, key, data, contentType)
	}
	if m.getBlobs == nil {
		m.getBlobs = map[string][]byte{}
	}
	m.getBlobs[key] = data
	return nil
}

func (m *mockBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.getBlobs[key]
	if !ok {
		return nil, errors.New("object missing")
	}
	return data, nil
}

func (m *mockBlobStore) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	delete(m.getBlobs, key)
	return nil
}

func authedPadRepo(t *testing.T, padID, secret string) *mockPadRepository {
	t.Helper()
	digest := mustDigest(t, secret)
	return &mockPadRepository{
		getFn: func(ctx context.Context, id string) (*model.Pad, error) {
			if id != padID {
				return nil, errs.ErrNotFound
			}
			return &model.Pad{ID: id, SecretDigest: digest}, nil
		},
	}
}

func newTestAttachmentService(t *testing.T, repo *mockAttachmentRepository, blobs *mockBlobStore, now func() time.Time) *AttachmentService {
	t.Helper()
	return NewAttachmentService(AttachmentServiceDeps{
		Attachments:    repo,
		Blobs:          blobs,
		Gate:           NewAccessGate(authedPadRepo(t, "demo", "abcd"), nil),
		MaxUploadBytes: 10 << 20,
		Lifetime:       24 * time.Hour,
		Now:            now,
	})
}

func TestAttachmentService_Upload_ExpiryInvariant(t *testing.T) {
	uploadedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var stored *model.Attachment
	repo := &mockAttachmentRepository{
		createFn: func(ctx context.Context, att *model.Attachment) error {
			stored = att
			return nil
		},
	}
	blobs := &mockBlobStore{}

	svc := newTestAttachmentService(t, repo, blobs, func() time.Time { return uploadedAt })
	att, err := svc.Upload(context.Background(), "demo", Credentials{Secret: "abcd"}, Upload{
		Filename: "pic.png",
		Data:     append(append([]byte{}, pngHeader...), 0x01),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if !att.ExpiresAt.Equal(uploadedAt.Add(24 * time.Hour)) {
		t.Fatalf("expiry must be upload time + 24h, got %v", att.ExpiresAt)
	}
	if att.ContentType != "image/png" {
		t.Fatalf("expected sniffed content type image/png, got %s", att.ContentType)
	}
	if stored == nil {
		t.Fatal("metadata was not persisted")
	}
	if _, ok := blobs.getBlobs[att.ObjectKey]; !ok {
		t.Fatal("payload was not persisted under the object key")
	}
}

func TestAttachmentService_Upload_RejectsSpoofedExtension(t *testing.T) {
	persisted := false
	repo := &mockAttachmentRepository{
		createFn: func(ctx context.Context, att *model.Attachment) error {
			persisted = true
			return nil
		},
	}
	blobs := &mockBlobStore{
		putFn: func(ctx context.Context, key string, data []byte, contentType string) error {
			persisted = true
			return nil
		},
	}

	svc := newTestAttachmentService(t, repo, blobs, time.Now)
	// Plain text renamed to .pdf: leading bytes decide, not the name.
	_, err := svc.Upload(context.Background(), "demo", Credentials{Secret: "abcd"}, Upload{
		Filename: "report.pdf",
		Data:     []byte("just some text pretending to be a pdf"),
	})
	if !errors.Is(err, errs.ErrInvalidFile) {
		t.Fatalf("expected ErrInvalidFile, got %v", err)
	}
	if persisted {
		t.Fatal("nothing may be persisted for a rejected upload")
	}
}

func TestAttachmentService_Upload_TooLargeBeforePersist(t *testing.T) {
	persisted := false
	blobs := &mockBlobStore{
		putFn: func(ctx context.Context, key string, data []byte, contentType string) error {
			persisted = true
			return nil
		},
	}
	repo := &mockAttachmentRepository{}

	svc := NewAttachmentService(AttachmentServiceDeps{
		Attachments:    repo,
		Blobs:          blobs,
		Gate:           NewAccessGate(authedPadRepo(t, "demo", "abcd"), nil),
		MaxUploadBytes: 16,
		Lifetime:       24 * time.Hour,
	})

	data := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)
	_, err := svc.Upload(context.Background(), "demo", Credentials{Secret: "abcd"}, Upload{Filename: "big.png", Data: data})
	if !errors.Is(err, errs.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if persisted {
		t.Fatal("oversized upload must be rejected before any payload write")
	}
}

func TestAttachmentService_Upload_RollsBackPayloadOnMetadataFailure(t *testing.T) {
	repo := &mockAttachmentRepository{
		createFn: func(ctx context.Context, att *model.Attachment) error {
			return errors.New("insert failed")
		},
	}
	blobs := &mockBlobStore{}

	svc := newTestAttachmentService(t, repo, blobs, time.Now)
	_, err := svc.Upload(context.Background(), "demo", Credentials{Secret: "abcd"}, Upload{
		Filename: "pic.png",
		Data:     append(append([]byte{}, pngHeader...), 0x01),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(blobs.deleted) != 1 {
		t.Fatalf("expected the orphaned payload to be deleted, got deletes: %v", blobs.deleted)
	}
}

func TestAttachmentService_Get_ExpiredIsPurgedAndDistinct(t *testing.T) {
	now := time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC)
	att := &model.Attachment{
		ID:        "a1",
		PadID:     "demo",
		ObjectKey: "demo/a1",
		// expired one hour ago
		UploadedAt: now.Add(-25 * time.Hour),
		ExpiresAt:  now.Add(-time.Hour),
	}

	metadataDeleted := false
	repo := &mockAttachmentRepository{
		getFn: func(ctx context.Context, padID, id string) (*model.Attachment, error) {
			cp := *att
			return &cp, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			metadataDeleted = true
			return nil
		},
	}
	blobs := &mockBlobStore{getBlobs: map[string][]byte{"demo/a1": {1, 2, 3}}}

	svc := newTestAttachmentService(t, repo, blobs, func() time.Time { return now })
	_, err := svc.Get(context.Background(), "demo", Credentials{Secret: "abcd"}, "a1")
	if !errors.Is(err, errs.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if errors.Is(err, errs.ErrNotFound) {
		t.Fatal("ErrExpired must be distinct from ErrNotFound")
	}
	if !metadataDeleted {
		t.Fatal("expired attachment metadata must be purged on access")
	}
	if len(blobs.deleted) != 1 || blobs.deleted[0] != "demo/a1" {
		t.Fatalf("expired payload must be purged on access, deletes: %v", blobs.deleted)
	}
}

func TestAttachmentService_Get_LiveReturnsPayload(t *testing.T) {
	now := time.Now()
	repo := &mockAttachmentRepository{
		getFn: func(ctx context.Context, padID, id string) (*model.Attachment, error) {
			return &model.Attachment{
				ID: id, PadID: padID, ObjectKey: "demo/a1",
				Filename: "pic.png", ContentType: "image/png",
				UploadedAt: now, ExpiresAt: now.Add(time.Hour),
			}, nil
		},
	}
	blobs := &mockBlobStore{getBlobs: map[string][]byte{"demo/a1": {9, 9}}}

	svc := newTestAttachmentService(t, repo, blobs, func() time.Time { return now })
	dl, err := svc.Get(context.Background(), "demo", Credentials{Secret: "abcd"}, "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(dl.Data, []byte{9, 9}) {
		t.Fatalf("unexpected payload %v", dl.Data)
	}
}

func TestAttachmentService_PurgeExpired_BestEffort(t *testing.T) {
	now := time.Now()
	expired := []model.Attachment{
		{ID: "a1", PadID: "demo", ObjectKey: "demo/a1", ExpiresAt: now.Add(-time.Hour)},
		{ID: "a2", PadID: "demo", ObjectKey: "demo/a2", ExpiresAt: now.Add(-time.Minute)},
	}

	var deletedRows []string
	repo := &mockAttachmentRepository{
		listExpiredFn: func(ctx context.Context, padID string, at time.Time) ([]model.Attachment, error) {
			return expired, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			deletedRows = append(deletedRows, id)
			return nil
		},
	}
	blobs := &mockBlobStore{
		deleteFn: func(ctx context.Context, key string) error {
			if key == "demo/a1" {
				return errors.New("object already gone")
			}
			return nil
		},
	}

	svc := newTestAttachmentService(t, repo, blobs, func() time.Time { return now })
	purged, err := svc.PurgeExpired(context.Background(), "demo")
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}

	// A missing payload must not block the metadata delete of its entry,
	// nor stop later entries.
	if purged != 2 {
		t.Fatalf("expected both entries purged, got %d", purged)
	}
	if len(deletedRows) != 2 {
		t.Fatalf("expected 2 metadata deletes, got %v", deletedRows)
	}
}

func TestAttachmentService_WrongSecret(t *testing.T) {
	svc := newTestAttachmentService(t, &mockAttachmentRepository{}, &mockBlobStore{}, time.Now)

	_, err := svc.Upload(context.Background(), "demo", Credentials{Secret: "nope"}, Upload{
		Filename: "pic.png",
		Data:     pngHeader,
	})
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("Upload: expected ErrUnauthorized, got %v", err)
	}

	_, err = svc.Get(context.Background(), "demo", Credentials{Secret: "nope"}, "a1")
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("Get: expected ErrUnauthorized, got %v", err)
	}
}
