package service

import (
	"context"
	"time"

	infraprom "github.com/arslanov/padlock/internal/infra/prometheus"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// sweepTarget is the slice of the attachment service the sweeper drives.
type sweepTarget interface {
	PadsWithExpired(ctx context.Context) ([]string, error)
	PurgeExpired(ctx context.Context, padID string) (int, error)
}

// Advisory lock key guarding the sweep so overlapping instances skip a pass
// instead of purging the same rows twice.
const sweepLockKey = int64(0x7061646c6f636b) // "padlock"

// Sweeper periodically purges expired attachments across all pads. It runs
// once immediately at start to clear any backlog accumulated while the
// process was down, then on a fixed interval.
type Sweeper struct {
	logger      *zap.Logger
	attachments sweepTarget
	pool        *pgxpool.Pool
	interval    time.Duration
	stopChan    chan struct{}
}

// NewSweeper creates an expiration sweeper. pool may be nil, in which case
// the advisory lock is skipped (single-instance deployments and tests).
func NewSweeper(logger *zap.Logger, attachments sweepTarget, pool *pgxpool.Pool, interval time.Duration) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		logger:      logger,
		attachments: attachments,
		pool:        pool,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the periodic sweeping, including one immediate pass.
func (s *Sweeper) Start() {
	go s.run()
}

// Stop stops the periodic sweeping.
func (s *Sweeper) Stop() {
	close(s.stopChan)
}

func (s *Sweeper) run() {
	s.Sweep(context.Background())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopChan:
			s.logger.Info("expiration sweeper stopped")
			return
		}
	}
}

// Sweep performs one pass over every pad holding expired attachments. Errors
// are logged per pad and never abort the remaining pads.
func (s *Sweeper) Sweep(ctx context.Context) {
	release, acquired := s.tryLock(ctx)
	if !acquired {
		s.logger.Debug("sweep lock held elsewhere, skipping pass")
		return
	}
	defer release()

	padIDs, err := s.attachments.PadsWithExpired(ctx)
	if err != nil {
		s.logger.Error("failed to enumerate pads with expired attachments", zap.Error(err))
		return
	}

	total := 0
	for _, padID := range padIDs {
		purged, err := s.attachments.PurgeExpired(ctx, padID)
		if err != nil {
			s.logger.Error("sweep failed for pad", zap.String("pad_id", padID), zap.Error(err))
			continue
		}
		total += purged
	}

	infraprom.SweepsTotal.Inc()
	if total > 0 {
		s.logger.Info("expiration sweep completed",
			zap.Int("pads", len(padIDs)),
			zap.Int("purged", total),
		)
	}
}

// tryLock takes the Postgres advisory lock on a dedicated connection so the
// unlock is guaranteed to hit the same session. Lock errors fail open: a
// missed lock only risks redundant idempotent purges.
func (s *Sweeper) tryLock(ctx context.Context) (release func(), acquired bool) {
	if s.pool == nil {
		return func() {}, true
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		s.logger.Warn("sweep lock connection failed, sweeping unlocked", zap.Error(err))
		return func() {}, true
	}

	var got bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", sweepLockKey).Scan(&got); err != nil {
		s.logger.Warn("sweep lock query failed, sweeping unlocked", zap.Error(err))
		conn.Release()
		return func() {}, true
	}
	if !got {
		conn.Release()
		return nil, false
	}

	return func() {
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", sweepLockKey); err != nil {
			s.logger.Warn("sweep unlock failed", zap.Error(err))
		}
		conn.Release()
	}, true
}
