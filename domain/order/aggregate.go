/*
Package order Order aggregate

An Order owns its delivery Address and its line items. The client-visible
status label and the completion timestamp are never set directly; they are
derived from a status.Resolution through ApplyResolution.
*/
package order

import (
	"strconv"
	"strings"
	"time"

	"orderflow/domain/shared"
	"orderflow/domain/status"

	"github.com/shopspring/decimal"
)

// NumberPrefix is prepended to the numeric id to form the order number.
const NumberPrefix = "VR-"

// FormatNumber derives the human-readable order number from the order id.
func FormatNumber(id int64) string {
	return NumberPrefix + strconv.FormatInt(id, 10)
}

// DeliveryWindow is the optional desired delivery interval.
type DeliveryWindow struct {
	Start *time.Time
	End   *time.Time
}

// LineItem is one ordered dish; the unit price is captured at order time.
type LineItem struct {
	ID        int64
	DishID    int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal is quantity times unit price.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Draft carries every caller-supplied field of an order.
type Draft struct {
	Address        Address
	Window         DeliveryWindow
	Items          []LineItem
	AccountID      *int64
	ShippingCost   decimal.Decimal
	GoodsCost      decimal.Decimal
	PaymentMethod  string
	Paid           bool
	PrepareChange  *decimal.Decimal
	ClientComment  *string
	ManagerComment *string
	ClientName     string
	ClientPhone    string
}

// Validate checks the draft before any write is attempted.
func (d Draft) Validate() error {
	if err := d.Address.Validate(); err != nil {
		return err
	}
	if err := ValidateItems(d.Items); err != nil {
		return err
	}
	if d.Window.Start != nil && d.Window.End != nil && d.Window.End.Before(*d.Window.Start) {
		return NewInvalidOrderError("endDesiredDeliveryTime", "delivery window ends before it starts")
	}
	if d.ShippingCost.IsNegative() {
		return NewInvalidOrderError("shippingCost", "shipping cost must not be negative")
	}
	if d.GoodsCost.IsNegative() {
		return NewInvalidOrderError("goodsCost", "goods cost must not be negative")
	}
	if d.PrepareChange != nil && d.PrepareChange.IsNegative() {
		return NewInvalidOrderError("prepareChangeMoney", "change amount must not be negative")
	}
	if strings.TrimSpace(d.PaymentMethod) == "" {
		return NewInvalidOrderError("paymentMethod", "payment method is required")
	}
	return nil
}

// ValidateItems enforces a non-empty list of positive quantities and non-negative prices.
func ValidateItems(items []LineItem) error {
	if len(items) == 0 {
		return NewEmptyOrderItemsError()
	}
	for i, item := range items {
		if item.DishID <= 0 {
			return NewInvalidLineItemError(i, "dish reference is required")
		}
		if item.Quantity <= 0 {
			return NewInvalidLineItemError(i, "quantity must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return NewInvalidLineItemError(i, "unit price must not be negative")
		}
	}
	return nil
}

// Order aggregate root
type Order struct {
	id          int64
	number      string
	placedAt    time.Time
	completedAt *time.Time

	status      status.Ref
	clientLabel string

	draft Draft

	events []shared.DomainEvent
}

// NewOrder validates the draft and applies the resolved initial status.
// Identity, placement time and number are assigned by the store afterwards.
func NewOrder(d Draft, res status.Resolution, now time.Time) (*Order, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	o := &Order{draft: cloneDraft(d)}
	o.ApplyResolution(res, now)
	return o, nil
}

// ReconstructionDTO restores an order from storage.
type ReconstructionDTO struct {
	ID          int64
	Number      string
	PlacedAt    time.Time
	CompletedAt *time.Time
	Status      status.Ref
	ClientLabel string
	Draft       Draft
}

func RebuildFromDTO(dto ReconstructionDTO) *Order {
	return &Order{
		id:          dto.ID,
		number:      dto.Number,
		placedAt:    dto.PlacedAt,
		completedAt: dto.CompletedAt,
		status:      dto.Status,
		clientLabel: dto.ClientLabel,
		draft:       dto.Draft,
	}
}

// AssignIdentity is called once the header row exists.
func (o *Order) AssignIdentity(id int64, placedAt time.Time) {
	o.id = id
	o.placedAt = placedAt
}

// AssignNumber sets the number exactly once; re-assigning the same value is a no-op.
func (o *Order) AssignNumber(number string) error {
	if o.number != "" && o.number != number {
		return NewNumberAlreadyAssignedError(o.number, number)
	}
	o.number = number
	return nil
}

// ApplyResolution sets the derived label and completion timestamp.
// Re-applying the same final status keeps the original completion time.
func (o *Order) ApplyResolution(res status.Resolution, now time.Time) {
	previous := o.status
	o.status = res.Status
	o.clientLabel = res.ClientLabel

	if !res.Final {
		o.completedAt = nil
		return
	}
	if previous == res.Status && o.completedAt != nil {
		return
	}
	completed := now
	o.completedAt = &completed
}

// Revise replaces all caller-supplied fields. The address keeps its identity.
func (o *Order) Revise(d Draft, res status.Resolution, now time.Time) error {
	if err := d.Validate(); err != nil {
		return err
	}
	addressID := o.draft.Address.ID
	accountID := o.draft.AccountID
	clientComment := o.draft.ClientComment

	o.draft = cloneDraft(d)
	o.draft.Address.ID = addressID
	// Ownership and the client's own comment are not editable by managers.
	o.draft.AccountID = accountID
	if d.ClientComment == nil {
		o.draft.ClientComment = clientComment
	}
	o.ApplyResolution(res, now)
	return nil
}

// MarkPlaced records the placement event for the outbox.
func (o *Order) MarkPlaced(channel string) {
	o.events = append(o.events, NewOrderPlacedEvent(o, channel))
}

// AttachAddressID is called by the store after inserting the address.
func (o *Order) AttachAddressID(id int64) {
	o.draft.Address.ID = id
}

// ReplaceItems swaps in the persisted line items (with their new ids).
func (o *Order) ReplaceItems(items []LineItem) {
	o.draft.Items = append([]LineItem(nil), items...)
}

// ID implements shared.AggregateRoot.
func (o *Order) ID() string { return strconv.FormatInt(o.id, 10) }

// PullEvents implements shared.AggregateRoot.
func (o *Order) PullEvents() []shared.DomainEvent {
	events := o.events
	o.events = nil
	return events
}

func (o *Order) OrderID() int64                  { return o.id }
func (o *Order) Number() string                  { return o.number }
func (o *Order) PlacedAt() time.Time             { return o.placedAt }
func (o *Order) CompletedAt() *time.Time         { return o.completedAt }
func (o *Order) Status() status.Ref              { return o.status }
func (o *Order) ClientLabel() string             { return o.clientLabel }
func (o *Order) Address() Address                { return o.draft.Address }
func (o *Order) Window() DeliveryWindow          { return o.draft.Window }
func (o *Order) AccountID() *int64               { return o.draft.AccountID }
func (o *Order) ShippingCost() decimal.Decimal   { return o.draft.ShippingCost }
func (o *Order) GoodsCost() decimal.Decimal      { return o.draft.GoodsCost }
func (o *Order) PaymentMethod() string           { return o.draft.PaymentMethod }
func (o *Order) Paid() bool                      { return o.draft.Paid }
func (o *Order) PrepareChange() *decimal.Decimal { return o.draft.PrepareChange }
func (o *Order) ClientComment() *string          { return o.draft.ClientComment }
func (o *Order) ManagerComment() *string         { return o.draft.ManagerComment }
func (o *Order) ClientName() string              { return o.draft.ClientName }
func (o *Order) ClientPhone() string             { return o.draft.ClientPhone }
func (o *Order) Items() []LineItem               { return append([]LineItem(nil), o.draft.Items...) }
func (o *Order) IsOwnedBy(accountID int64) bool  { return o.draft.AccountID != nil && *o.draft.AccountID == accountID }
func (o *Order) TotalCost() decimal.Decimal      { return o.draft.GoodsCost.Add(o.draft.ShippingCost) }

func cloneDraft(d Draft) Draft {
	d.Items = append([]LineItem(nil), d.Items...)
	return d
}
