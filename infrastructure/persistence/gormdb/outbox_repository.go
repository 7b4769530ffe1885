package gormdb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"orderflow/domain/order"
	"orderflow/domain/shared"
	"orderflow/infrastructure/persistence"
	"orderflow/infrastructure/persistence/gormdb/po"

	"gorm.io/gorm"
)

// OutboxRepository outbox_events 表；order.placed 事件随下单事务写入，
// 由 worker 认领并投递到 AMQP / Kafka / Telegram
type OutboxRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// getDB returns the transaction from context if available, otherwise the default db
func (r *OutboxRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

// SaveEvent 在 ctx 中的事务内写入；没有事务时单独写入
func (r *OutboxRepository) SaveEvent(ctx context.Context, event shared.DomainEvent) error {
	if err := shared.ValidateEvent(event); err != nil {
		return fmt.Errorf("invalid domain event: %w", err)
	}
	row, err := po.FromDomainEvent(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.EventName(), err)
	}
	if err := r.getDB(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("save %s event for %s: %w", row.EventType, row.AggregateID, err)
	}
	return nil
}

// Pending 按写入顺序返回待投递事件
func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]*po.OutboxEventPO, error) {
	var events []*po.OutboxEventPO
	err := r.getDB(ctx).
		Where("status = ?", string(po.EventStatusPending)).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("load pending events: %w", err)
	}
	return events, nil
}

// PlacedEvents 某个订单的 order.placed 事件，最早的在前
func (r *OutboxRepository) PlacedEvents(ctx context.Context, orderID int64) ([]*po.OutboxEventPO, error) {
	var events []*po.OutboxEventPO
	err := r.getDB(ctx).
		Where("event_type = ? AND aggregate_id = ?", order.EventTypePlaced, strconv.FormatInt(orderID, 10)).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("load placement events of order %d: %w", orderID, err)
	}
	return events, nil
}

// Claim PENDING -> PROCESSING；其他 worker 已认领时返回错误
func (r *OutboxRepository) Claim(ctx context.Context, eventID string) error {
	return r.transition(ctx, eventID, po.EventStatusPending, map[string]interface{}{
		"status": string(po.EventStatusProcessing),
	})
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	return r.transition(ctx, eventID, po.EventStatusProcessing, map[string]interface{}{
		"status": string(po.EventStatusPublished),
	})
}

// MarkFailed 未达到 maxRetries 时放回 PENDING，否则置为 FAILED
func (r *OutboxRepository) MarkFailed(ctx context.Context, eventID string, maxRetries int) error {
	db := r.getDB(ctx)

	var event po.OutboxEventPO
	if err := db.Select("retry_count").First(&event, "id = ?", eventID).Error; err != nil {
		return fmt.Errorf("load event %s: %w", eventID, err)
	}
	retries := event.RetryCount + 1
	next := po.EventStatusPending
	if retries >= maxRetries {
		next = po.EventStatusFailed
	}
	return r.transition(ctx, eventID, po.EventStatusProcessing, map[string]interface{}{
		"status":      string(next),
		"retry_count": retries,
	})
}

// transition 只在事件处于 from 状态时更新
func (r *OutboxRepository) transition(ctx context.Context, eventID string, from po.EventStatus, updates map[string]interface{}) error {
	updates["updated_at"] = r.now()
	result := r.getDB(ctx).Model(&po.OutboxEventPO{}).
		Where("id = ? AND status = ?", eventID, string(from)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("event %s is not %s", eventID, from)
	}
	return nil
}

// RequeueStale 认领后在 cutoff 之前没有结果的事件重新放回 PENDING
func (r *OutboxRepository) RequeueStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.getDB(ctx).Model(&po.OutboxEventPO{}).
		Where("status = ? AND updated_at < ?", string(po.EventStatusProcessing), cutoff).
		Updates(map[string]interface{}{
			"status":     string(po.EventStatusPending),
			"updated_at": r.now(),
		})
	return result.RowsAffected, result.Error
}

// PurgePublished 删除 cutoff 之前已投递的事件；FAILED 保留以便人工处理
func (r *OutboxRepository) PurgePublished(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.getDB(ctx).
		Where("status = ? AND updated_at < ?", string(po.EventStatusPublished), cutoff).
		Delete(&po.OutboxEventPO{})
	return result.RowsAffected, result.Error
}

// Compile-time interface implementation check
var _ shared.OutboxRepository = (*OutboxRepository)(nil)
var _ OutboxStore = (*OutboxRepository)(nil)
