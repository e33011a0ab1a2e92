package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/arslanov/padlock/internal/app/model"
	"github.com/arslanov/padlock/internal/app/repository"
	"github.com/arslanov/padlock/internal/crypto"
	"github.com/arslanov/padlock/internal/errs"
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrInvalidPadID rejects identifiers outside the allowed charset or length.
var ErrInvalidPadID = errors.New("invalid pad id")

// PadService defines behaviour-level operations on pads.
type PadService interface {
	WarmExistenceFilter(ctx context.Context) error
	CreatePad(ctx context.Context, id, secret string) (*model.Pad, error)
	Exists(ctx context.Context, id string) (bool, error)
	Verify(ctx context.Context, id, secret string) error
	GetPad(ctx context.Context, id string, creds Credentials) (*PadView, error)
	SavePad(ctx context.Context, id string, creds Credentials, content string) (*model.Pad, error)
	RecentActivity(ctx context.Context, id string, creds Credentials, limit int) ([]model.ActivityEvent, error)
}

// PadView is the authenticated read result: content plus live attachments.
type PadView struct {
	ID        string
	Content   string
	UpdatedAt time.Time
	Files     []model.Attachment
}

// attachmentPurger is the slice of the attachment service the pad service
// needs: lazy purge plus the live listing that follows it.
type attachmentPurger interface {
	PurgeExpired(ctx context.Context, padID string) (int, error)
	ListLive(ctx context.Context, padID string) ([]model.Attachment, error)
}

// activityRecorder publishes pad activity events; it is allowed to fail.
type activityRecorder interface {
	Publish(padID, kind, detail string) error
}

const (
	existsCacheTTL    = 30 * time.Second
	existsCachePrefix = "pad:exists:"

	// Bloom filter sizing for the expected pad population.
	bloomExpectedItems = 100_000
	bloomFalsePositive = 0.01
)

var padIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// PadServiceDeps groups dependencies required by the pad service.
type PadServiceDeps struct {
	Logger      *zap.Logger
	Pads        repository.PadRepository
	Attachments attachmentPurger
	Gate        *AccessGate
	Redis       *redis.Client
	Activity    activityRecorder
	ActivityLog repository.ActivityEventRepository
}

type padService struct {
	logger      *zap.Logger
	pads        repository.PadRepository
	attachments attachmentPurger
	gate        *AccessGate
	redis       *redis.Client
	activity    activityRecorder
	activityLog repository.ActivityEventRepository

	mu    sync.RWMutex
	known *bloom.BloomFilter
}

// NewPadService returns a pad service backed by the given dependencies.
// Redis and Activity may be nil; the service degrades to direct DB lookups
// and skips event publishing.
func NewPadService(deps PadServiceDeps) PadService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &padService{
		logger:      logger,
		pads:        deps.Pads,
		attachments: deps.Attachments,
		gate:        deps.Gate,
		redis:       deps.Redis,
		activity:    deps.Activity,
		activityLog: deps.ActivityLog,
		known:       bloom.NewWithEstimates(bloomExpectedItems, bloomFalsePositive),
	}
}

// WarmExistenceFilter seeds the bloom filter with every known pad ID. Called
// once at startup; a failure only weakens the fast path, so it is logged and
// ignored by the caller.
func (s *padService) WarmExistenceFilter(ctx context.Context) error {
	ids, err := s.pads.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list pad ids: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.known.AddString(id)
	}
	return nil
}

func (s *padService) CreatePad(ctx context.Context, id, secret string) (*model.Pad, error) {
	if !padIDPattern.MatchString(id) {
		return nil, ErrInvalidPadID
	}
	if secret == "" {
		return nil, errs.ErrUnauthorized
	}

	digest, err := crypto.HashSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	pad := &model.Pad{
		ID:           id,
		SecretDigest: digest,
	}
	if err := s.pads.Create(ctx, pad); err != nil {
		return nil, fmt.Errorf("create pad: %w", err)
	}

	s.mu.Lock()
	s.known.AddString(id)
	s.mu.Unlock()
	s.cacheExists(ctx, id, true)

	return pad, nil
}

// Exists answers the unauthenticated availability check. The bloom filter
// short-circuits definite misses, the Redis cache absorbs repeated probes,
// and only then does the DB get asked.
func (s *padService) Exists(ctx context.Context, id string) (bool, error) {
	if !padIDPattern.MatchString(id) {
		return false, nil
	}

	s.mu.RLock()
	maybe := s.known.TestString(id)
	s.mu.RUnlock()
	if !maybe {
		return false, nil
	}

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, existsCachePrefix+id).Result()
		if err == nil {
			return cached == "1", nil
		}
		if err != redis.Nil {
			s.logger.Warn("existence cache read failed", zap.Error(err))
		}
	}

	exists, err := s.pads.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check pad existence: %w", err)
	}
	s.cacheExists(ctx, id, exists)
	return exists, nil
}

func (s *padService) cacheExists(ctx context.Context, id string, exists bool) {
	if s.redis == nil {
		return
	}
	val := "0"
	if exists {
		val = "1"
	}
	if err := s.redis.Set(ctx, existsCachePrefix+id, val, existsCacheTTL).Err(); err != nil {
		s.logger.Warn("existence cache write failed", zap.Error(err))
	}
}

func (s *padService) Verify(ctx context.Context, id, secret string) error {
	_, err := s.gate.Authorize(ctx, id, Credentials{Secret: secret})
	return err
}

func (s *padService) GetPad(ctx context.Context, id string, creds Credentials) (*PadView, error) {
	pad, err := s.gate.Authorize(ctx, id, creds)
	if err != nil {
		return nil, err
	}

	// Lazy expiration: purge anything past its deadline before listing so
	// the sweeper and the access path agree on what is gone.
	if purged, err := s.attachments.PurgeExpired(ctx, id); err != nil {
		s.logger.Warn("lazy purge failed", zap.String("pad_id", id), zap.Error(err))
	} else if purged > 0 {
		s.logger.Info("purged expired attachments on access",
			zap.String("pad_id", id), zap.Int("count", purged))
	}

	files, err := s.attachments.ListLive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}

	return &PadView{
		ID:        pad.ID,
		Content:   pad.Content,
		UpdatedAt: pad.UpdatedAt,
		Files:     files,
	}, nil
}

func (s *padService) SavePad(ctx context.Context, id string, creds Credentials, content string) (*model.Pad, error) {
	pad, err := s.gate.Authorize(ctx, id, creds)
	if err != nil {
		return nil, err
	}

	// Whole-record update, last writer wins. Concurrent saves to the same
	// pad are not coordinated; the usage pattern is single-user-per-pad.
	if err := s.pads.UpdateContent(ctx, id, content); err != nil {
		return nil, fmt.Errorf("save pad: %w", err)
	}

	pad.Content = content
	pad.UpdatedAt = time.Now()
	s.recordActivity(id, model.ActivitySave, fmt.Sprintf("%d bytes", len(content)))
	return pad, nil
}

// RecentActivity returns the pad's latest recorded events, newest first. The
// feed is eventually consistent with the JetStream pipeline; an event just
// published may not be visible yet.
func (s *padService) RecentActivity(ctx context.Context, id string, creds Credentials, limit int) ([]model.ActivityEvent, error) {
	if _, err := s.gate.Authorize(ctx, id, creds); err != nil {
		return nil, err
	}
	if s.activityLog == nil {
		return nil, nil
	}
	return s.activityLog.ListByPad(ctx, id, limit)
}

func (s *padService) recordActivity(padID, kind, detail string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Publish(padID, kind, detail); err != nil {
		s.logger.Warn("activity publish failed",
			zap.String("pad_id", padID), zap.String("kind", kind), zap.Error(err))
	}
}
