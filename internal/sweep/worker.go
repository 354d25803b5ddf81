package sweep

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/time/rate"

	"github.com/ianjiteshan/ShareSYNC/internal/logging"
	"github.com/ianjiteshan/ShareSYNC/internal/metrics"
	"github.com/ianjiteshan/ShareSYNC/internal/mq"
	"github.com/ianjiteshan/ShareSYNC/internal/repo"
	"github.com/ianjiteshan/ShareSYNC/internal/storage"
)

// WorkerConfig bounds the deletion worker's concurrency, retry
// schedule, and prefetch, mirroring the knobs teacher's download
// worker exposed for the download-task domain.
type WorkerConfig struct {
	Bucket      string
	Concurrency int
	Prefetch    int
	MaxRetries  int
	RetryDelays []time.Duration
}

// DeletionWorker consumes deletion tasks published by Sweeper,
// removes the backing object, and marks the share row deleted.
// Structurally grounded on teacher's
// internal/worker/download_worker.go: a bounded semaphore for
// concurrent deliveries, shouldRetry/scheduleRetry/markFailed staged
// error handling, and a rate limiter protecting the object store from
// a thundering-herd deletion burst after a large batch expires.
type DeletionWorker struct {
	repo  repo.ShareRepository
	store storage.Store
	cfg   WorkerConfig
}

// NewDeletionWorker wires the metadata repository and object store
// the worker acts against.
func NewDeletionWorker(shareRepo repo.ShareRepository, store storage.Store, cfg WorkerConfig) *DeletionWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = cfg.Concurrency
	}
	return &DeletionWorker{repo: shareRepo, store: store, cfg: cfg}
}

// Run consumes from the deletion tasks queue until ctx is cancelled.
func (w *DeletionWorker) Run(ctx context.Context, client *mq.Client) error {
	if err := client.Channel.Qos(w.cfg.Prefetch, 0, false); err != nil {
		return err
	}
	deliveries, err := client.Consume("")
	if err != nil {
		return err
	}

	sem := make(chan struct{}, w.cfg.Concurrency)
	limiter := rate.NewLimiter(rate.Limit(w.cfg.Concurrency*4), w.cfg.Concurrency*4)

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("deletion worker: delivery channel closed")
			}
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				w.handle(ctx, client, limiter, d)
			}(delivery)
		}
	}
}

func (w *DeletionWorker) handle(ctx context.Context, client *mq.Client, limiter *rate.Limiter, delivery amqp.Delivery) {
	logger := logging.From(ctx)

	var msg DeletionMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		logger.WithError(err).Error("deletion worker: invalid message")
		_ = delivery.Ack(false)
		return
	}

	if err := limiter.Wait(ctx); err != nil {
		_ = delivery.Nack(false, true)
		return
	}

	err := w.process(ctx, msg)
	if err == nil {
		_ = delivery.Ack(false)
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		_ = delivery.Nack(false, true)
		return
	}

	metrics.SweepDeletionFailures.Inc()
	nextAttempt := msg.Attempt + 1
	if w.cfg.MaxRetries > 0 && nextAttempt <= w.cfg.MaxRetries {
		msg.Attempt = nextAttempt
		delay := pickRetryDelay(nextAttempt, w.cfg.RetryDelays)
		body, marshalErr := json.Marshal(msg)
		if marshalErr == nil {
			if pubErr := client.PublishRetry(ctx, body, delay); pubErr == nil {
				_ = delivery.Ack(false)
				return
			}
		}
	}

	if dlqErr := w.markFailed(ctx, client, msg, err); dlqErr != nil {
		logger.WithError(dlqErr).Error("deletion worker: dlq publish failed")
	}
	_ = delivery.Ack(false)
}

// process removes the object and transitions the share to deleted.
// Treating storage.ErrNotExist as success makes the operation
// idempotent across retries (spec §4.4).
func (w *DeletionWorker) process(ctx context.Context, msg DeletionMessage) error {
	if err := w.store.RemoveObject(ctx, w.cfg.Bucket, msg.StorageKey); err != nil && !errors.Is(err, storage.ErrNotExist) {
		return err
	}
	return w.repo.TransitionToDeleted(ctx, msg.ShareID)
}

func (w *DeletionWorker) markFailed(ctx context.Context, client *mq.Client, msg DeletionMessage, procErr error) error {
	dlq := dlqMessage{
		ShareID:  msg.ShareID,
		Attempt:  msg.Attempt,
		Error:    procErr.Error(),
		FailedAt: time.Now(),
	}
	body, err := json.Marshal(dlq)
	if err != nil {
		return err
	}
	return client.PublishDLQ(ctx, body)
}

func pickRetryDelay(attempt int, delays []time.Duration) time.Duration {
	if len(delays) == 0 {
		return 0
	}
	index := attempt - 1
	if index < 0 {
		index = 0
	}
	if index >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[index]
}
