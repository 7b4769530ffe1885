package gormdb

import (
	"context"
	"fmt"
	"time"

	"orderflow/infrastructure/persistence/gormdb/po"
	"orderflow/pkg/logger"

	"go.uber.org/zap"
)

// OutboxPublisher 下游事件投递
type OutboxPublisher interface {
	Publish(ctx context.Context, eventType, payload string) error
}

// OutboxStore worker 所需的 outbox 读写操作
type OutboxStore interface {
	Pending(ctx context.Context, limit int) ([]*po.OutboxEventPO, error)
	Claim(ctx context.Context, eventID string) error
	MarkPublished(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID string, maxRetries int) error
	RequeueStale(ctx context.Context, cutoff time.Time) (int64, error)
	PurgePublished(ctx context.Context, cutoff time.Time) (int64, error)
}

// 未配置时的维护参数
const (
	DefaultClaimTimeout = 5 * time.Minute
	DefaultRetention    = 7 * 24 * time.Hour
)

type OutboxWorker struct {
	store        OutboxStore
	publisher    OutboxPublisher
	pollInterval time.Duration
	batchSize    int
	maxRetries   int
	claimTimeout time.Duration
	retention    time.Duration
}

func NewOutboxWorker(
	store OutboxStore,
	publisher OutboxPublisher,
	pollInterval time.Duration,
	batchSize int,
	maxRetries int,
) (*OutboxWorker, error) {
	if store == nil {
		return nil, fmt.Errorf("outbox store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher is required")
	}
	if pollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if maxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be positive")
	}

	return &OutboxWorker{
		store:        store,
		publisher:    publisher,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		maxRetries:   maxRetries,
		claimTimeout: DefaultClaimTimeout,
		retention:    DefaultRetention,
	}, nil
}

// WithMaintenance 非正值保持默认
func (w *OutboxWorker) WithMaintenance(claimTimeout, retention time.Duration) *OutboxWorker {
	if claimTimeout > 0 {
		w.claimTimeout = claimTimeout
	}
	if retention > 0 {
		w.retention = retention
	}
	return w
}

// Maintain 将认领超时的事件放回队列，并清理过期的已投递事件
func (w *OutboxWorker) Maintain(ctx context.Context, now time.Time) error {
	requeued, err := w.store.RequeueStale(ctx, now.Add(-w.claimTimeout))
	if err != nil {
		return fmt.Errorf("requeue stale events: %w", err)
	}
	purged, err := w.store.PurgePublished(ctx, now.Add(-w.retention))
	if err != nil {
		return fmt.Errorf("purge published events: %w", err)
	}
	if requeued > 0 || purged > 0 {
		logger.Info("Outbox maintenance",
			zap.Int64("requeued", requeued),
			zap.Int64("purged", purged),
		)
	}
	return nil
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				logger.Error("Outbox batch processing failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch publishes one batch and returns how many events were delivered
func (w *OutboxWorker) ProcessBatch(ctx context.Context) (int, error) {
	events, err := w.store.Pending(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, event := range events {
		if err := w.store.Claim(ctx, event.ID); err != nil {
			logger.Warn("Skip outbox event due to lock contention",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}

		if err := w.publisher.Publish(ctx, event.EventType, event.Payload); err != nil {
			logger.Warn("Outbox event delivery failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)
			if failErr := w.store.MarkFailed(ctx, event.ID, w.maxRetries); failErr != nil {
				logger.Error("Failed to mark outbox event as failed",
					zap.String("event_id", event.ID),
					zap.Error(failErr),
				)
			}
			continue
		}

		if err := w.store.MarkPublished(ctx, event.ID); err != nil {
			logger.Error("Failed to mark outbox event as published",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}
		published++
	}

	return published, nil
}
