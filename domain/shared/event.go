package shared

import (
	"fmt"
	"time"
)

// DomainEvent is recorded by an aggregate and persisted to the outbox by the unit of work.
type DomainEvent interface {
	EventName() string
	OccurredOn() time.Time
	GetAggregateID() string
}

// PayloadEvent is implemented by events that carry their own integration payload.
type PayloadEvent interface {
	DomainEvent
	Payload() map[string]interface{}
}

func ValidateEvent(event DomainEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	if event.EventName() == "" {
		return fmt.Errorf("event name cannot be empty")
	}

	if event.GetAggregateID() == "" {
		return fmt.Errorf("aggregate ID cannot be empty")
	}

	if event.OccurredOn().IsZero() {
		return fmt.Errorf("occurred on time cannot be zero")
	}

	return nil
}
