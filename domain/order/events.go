package order

import (
	"strconv"
	"time"
)

// Placement channels recorded on OrderPlacedEvent.
const (
	ChannelClient  = "client"
	ChannelManager = "manager"
)

// EventTypePlaced is the outbox event type of OrderPlacedEvent.
const EventTypePlaced = "order.placed"

// OrderPlacedEvent is recorded once an order has its number and line items.
type OrderPlacedEvent struct {
	orderID     int64
	orderNumber string
	placedAt    time.Time
	accountID   *int64
	channel     string
	totalCost   string
	occurredOn  time.Time
}

func NewOrderPlacedEvent(o *Order, channel string) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		orderID:     o.id,
		orderNumber: o.number,
		placedAt:    o.placedAt,
		accountID:   o.AccountID(),
		channel:     channel,
		totalCost:   o.TotalCost().StringFixed(2),
		occurredOn:  time.Now(),
	}
}

func (e *OrderPlacedEvent) EventName() string      { return EventTypePlaced }
func (e *OrderPlacedEvent) OccurredOn() time.Time  { return e.occurredOn }
func (e *OrderPlacedEvent) GetAggregateID() string { return strconv.FormatInt(e.orderID, 10) }
func (e *OrderPlacedEvent) OrderID() int64         { return e.orderID }
func (e *OrderPlacedEvent) OrderNumber() string    { return e.orderNumber }
func (e *OrderPlacedEvent) PlacedAt() time.Time    { return e.placedAt }
func (e *OrderPlacedEvent) Channel() string        { return e.channel }

// Payload implements shared.PayloadEvent.
func (e *OrderPlacedEvent) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"order_id":             e.orderID,
		"order_number":         e.orderNumber,
		"order_placement_time": e.placedAt,
		"channel":              e.channel,
		"total_cost":           e.totalCost,
	}
	if e.accountID != nil {
		payload["account_id"] = *e.accountID
	}
	return payload
}
