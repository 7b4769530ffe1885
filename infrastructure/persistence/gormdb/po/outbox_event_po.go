package po

import (
	"encoding/json"
	"time"

	"orderflow/domain/shared"

	"github.com/google/uuid"
)

// OutboxEventPO Outbox event persistence object
// Implements transactional outbox pattern for reliable event publishing
type OutboxEventPO struct {
	ID          string    `gorm:"primaryKey;size:64"`
	AggregateID string    `gorm:"size:64;index;not null"`
	EventType   string    `gorm:"size:100;index;not null"`          // e.g., "order.placed"
	Payload     string    `gorm:"type:json;not null"`               // JSON serialized event data
	Status      string    `gorm:"size:20;default:PENDING;not null"` // PENDING, PROCESSING, PUBLISHED, FAILED
	RetryCount  int       `gorm:"default:0;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName Specify table name
func (OutboxEventPO) TableName() string {
	return "outbox_events"
}

// EventStatus Outbox event status enum
type EventStatus string

const (
	EventStatusPending    EventStatus = "PENDING"
	EventStatusProcessing EventStatus = "PROCESSING"
	EventStatusPublished  EventStatus = "PUBLISHED"
	EventStatusFailed     EventStatus = "FAILED"
)

// FromDomainEvent Convert domain event to outbox persistence object
func FromDomainEvent(event shared.DomainEvent) (*OutboxEventPO, error) {
	payload, err := serializeEventToJSON(event)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &OutboxEventPO{
		ID:          uuid.New().String(),
		AggregateID: event.GetAggregateID(),
		EventType:   event.EventName(),
		Payload:     payload,
		Status:      string(EventStatusPending),
		RetryCount:  0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// serializeEventToJSON 公共信封字段加上事件自带的载荷
func serializeEventToJSON(event shared.DomainEvent) (string, error) {
	eventData := map[string]interface{}{
		"event_name":   event.EventName(),
		"aggregate_id": event.GetAggregateID(),
		"occurred_on":  event.OccurredOn(),
	}

	if withPayload, ok := event.(shared.PayloadEvent); ok {
		for k, v := range withPayload.Payload() {
			if _, reserved := eventData[k]; !reserved {
				eventData[k] = v
			}
		}
	}

	data, err := json.Marshal(eventData)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// ToEventData Extract event data from outbox PO (for debugging/testing)
func (po *OutboxEventPO) ToEventData() (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(po.Payload), &data); err != nil {
		return nil, err
	}
	return data, nil
}
