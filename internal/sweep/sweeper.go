// Package sweep implements the expiry/cleanup engine (spec §4.4): a
// ticker-driven sweeper that batches shares past their expiry into
// the expired state and hands object deletion off to a queue-backed
// worker, plus a second-pass hard-deleter for the configured
// retention window. Structurally grounded on teacher's
// internal/worker/download_worker.go (semaphore-bounded concurrency,
// retry/backoff, dead-letter-on-exhaustion) and cmd/worker/main.go's
// process shape, renamed from the download-task domain to the
// share-expiry domain. The batch-selection query itself is the
// metadata repository's job (internal/repo.TransitionToExpired); this
// package only drives the ticker, the cross-instance lease, and the
// deletion hand-off.
package sweep

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ianjiteshan/ShareSYNC/internal/logging"
	"github.com/ianjiteshan/ShareSYNC/internal/metrics"
	"github.com/ianjiteshan/ShareSYNC/internal/mq"
	"github.com/ianjiteshan/ShareSYNC/internal/repo"
	"github.com/ianjiteshan/ShareSYNC/model"
	"github.com/redis/go-redis/v9"
)

// Config carries the subset of config.Config the sweeper needs,
// duplicated here rather than importing config directly so this
// package has no dependency on process-wide configuration loading.
type Config struct {
	Interval            time.Duration
	Grace               time.Duration
	BatchSize           int
	// HardDeleteRetention is how long a row stays soft-deleted before
	// the hard-delete pass purges it. Zero disables hard-deletion
	// entirely rather than purging immediately.
	HardDeleteRetention time.Duration
	LeaseTTL            time.Duration
}

// Sweeper is the active trigger for the pending_upload/available ->
// expired transition. It is the sole mechanism that performs this
// transition; there is deliberately no passive Redis-keyspace-
// notification listener racing against it (see DESIGN.md).
type Sweeper struct {
	repo   repo.ShareRepository
	mqURL  string
	rdb    *redis.Client
	cfg    Config
	nowFn  func() time.Time
}

// NewSweeper wires the metadata repository, the Redis client used for
// the cross-instance lease, and the RabbitMQ URL the deletion tasks
// are published to.
func NewSweeper(shareRepo repo.ShareRepository, rdb *redis.Client, mqURL string, cfg Config) *Sweeper {
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = cfg.Interval
	}
	return &Sweeper{repo: shareRepo, mqURL: mqURL, rdb: rdb, cfg: cfg, nowFn: time.Now}
}

// Run blocks, ticking every cfg.Interval until ctx is cancelled. Each
// tick is guarded by a lease so that running multiple sweeper
// processes for availability does not double-process a batch.
func (s *Sweeper) Run(ctx context.Context) {
	logger := logging.From(ctx)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				logger.WithError(err).Warn("sweep tick failed")
			}
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) error {
	logger := logging.From(ctx)
	lock := repo.NewRedisLock(s.rdb, "sweeper:lease", s.cfg.LeaseTTL)
	if err := lock.Lock(ctx); err != nil {
		if err == repo.ErrLockBusy {
			return nil
		}
		return err
	}
	defer func() {
		if err := lock.Unlock(ctx); err != nil {
			logger.WithError(err).Warn("failed to release sweeper lease")
		}
	}()

	now := s.nowFn()
	expired, err := s.repo.TransitionToExpired(ctx, s.cfg.BatchSize, s.cfg.Grace, now)
	if err != nil {
		return err
	}
	metrics.SweepBatches.Inc()
	if len(expired) > 0 {
		metrics.SweepSharesExpired.Add(float64(len(expired)))
		if err := s.enqueueDeletions(ctx, expired); err != nil {
			logger.WithError(err).Warn("failed to enqueue some deletion tasks")
		}
	}

	if s.cfg.HardDeleteRetention <= 0 {
		return nil
	}
	deleted, err := s.repo.HardDelete(ctx, now.Add(-s.cfg.HardDeleteRetention))
	if err != nil {
		logger.WithError(err).Warn("hard delete pass failed")
	} else if deleted > 0 {
		logger.WithField("count", deleted).Info("hard-deleted retired share rows")
	}
	return nil
}

func (s *Sweeper) enqueueDeletions(ctx context.Context, shares []model.Share) error {
	for _, share := range shares {
		if err := EnqueueDeletion(ctx, s.mqURL, share.ShareID, share.StorageKey); err != nil {
			logging.From(ctx).WithError(err).WithField("share_id", share.ShareID).Error("failed to publish deletion task")
		}
	}
	return nil
}

// EnqueueDeletion publishes a single object-deletion task. It is the
// sole entry point onto the deletion queue, shared by the sweeper's
// expired batch and by a manual revoke. A publish failure is returned
// to the caller, which only logs it; the pending_upload->deleted path
// of a failed finalize (repo FailUpload) publishes no task.
func EnqueueDeletion(ctx context.Context, mqURL, shareID, storageKey string) error {
	client, err := mq.GetPublisher(mqURL)
	if err != nil {
		return err
	}
	msg := DeletionMessage{
		ShareID:    shareID,
		StorageKey: storageKey,
		Attempt:    0,
		EnqueuedAt: time.Now(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return client.PublishTask(ctx, body)
}
