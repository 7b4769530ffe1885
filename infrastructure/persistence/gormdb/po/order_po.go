package po

import (
	"time"

	"orderflow/domain/order"
	"orderflow/domain/status"

	"github.com/shopspring/decimal"
)

// DeliveryAddressPO delivery address persistence object
// Owned by exactly one order; deleted together with it
type DeliveryAddressPO struct {
	ID            int64   `gorm:"primaryKey;autoIncrement"`
	City          string  `gorm:"size:100;not null"`
	Street        string  `gorm:"size:255;not null"`
	House         string  `gorm:"size:50;not null"`
	Apartment     *string `gorm:"size:50"`
	Entrance      *string `gorm:"size:50"`
	Floor         *string `gorm:"size:50"`
	Comment       *string `gorm:"size:1000"`
	IsPrivateHome bool    `gorm:"not null;default:false"`
	Latitude      float64 `gorm:"not null"`
	Longitude     float64 `gorm:"not null"`
}

// TableName Specify table name
func (DeliveryAddressPO) TableName() string {
	return "delivery_addresses"
}

// OrderPO order header persistence object
// Note: Only used for database mapping, does not contain any business logic
// The association fields only declare foreign keys for migration; they are
// never preloaded and writes omit them
type OrderPO struct {
	ID                       int64               `gorm:"primaryKey;autoIncrement"`
	OrderNumber              *string             `gorm:"size:32;uniqueIndex"`
	PlacedAt                 time.Time           `gorm:"not null;index"`
	StartDesiredDeliveryTime *time.Time
	EndDesiredDeliveryTime   *time.Time
	CompletedAt              *time.Time
	AccountID                *int64              `gorm:"index"`
	DeliveryAddressID        int64               `gorm:"not null;index"`
	OrderStatusID            *int64              `gorm:"index"`
	ClientStatusLabel        string              `gorm:"size:100;not null"`
	ShippingCost             decimal.Decimal     `gorm:"type:numeric(12,2);not null"`
	GoodsCost                decimal.Decimal     `gorm:"type:numeric(12,2);not null"`
	PaymentMethod            string              `gorm:"size:50;not null;index"`
	IsPaid                   bool                `gorm:"not null;default:false"`
	PrepareChangeMoney       decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	CommentFromClient        *string             `gorm:"size:1000"`
	CommentFromManager       *string             `gorm:"size:1000"`
	NameClient               string              `gorm:"size:255;not null"`
	NumberPhoneClient        string              `gorm:"size:32;not null"`
	UpdatedAt                time.Time           `gorm:"autoUpdateTime"`

	DeliveryAddress *DeliveryAddressPO `gorm:"foreignKey:DeliveryAddressID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Status          *OrderStatusPO     `gorm:"foreignKey:OrderStatusID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName Specify table name
func (OrderPO) TableName() string {
	return "orders"
}

// CompositionOrderPO line item persistence object
type CompositionOrderPO struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	OrderID       int64           `gorm:"not null;index"`
	DishID        int64           `gorm:"not null"`
	QuantityOrder int             `gorm:"not null"`
	PricePerUnit  decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	Order *OrderPO `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName Specify table name
func (CompositionOrderPO) TableName() string {
	return "composition_orders"
}

// FromAddressDomain Convert domain address to persistence object
func FromAddressDomain(a *order.Address) *DeliveryAddressPO {
	return &DeliveryAddressPO{
		ID:            a.ID,
		City:          a.City,
		Street:        a.Street,
		House:         a.House,
		Apartment:     a.Apartment,
		Entrance:      a.Entrance,
		Floor:         a.Floor,
		Comment:       a.Comment,
		IsPrivateHome: a.PrivateHome,
		Latitude:      a.Latitude,
		Longitude:     a.Longitude,
	}
}

// ToDomain Convert persistence object to domain address
func (p *DeliveryAddressPO) ToDomain() order.Address {
	return order.Address{
		ID:          p.ID,
		City:        p.City,
		Street:      p.Street,
		House:       p.House,
		Apartment:   p.Apartment,
		Entrance:    p.Entrance,
		Floor:       p.Floor,
		Comment:     p.Comment,
		PrivateHome: p.IsPrivateHome,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
	}
}

// FromOrderDomain Convert domain header fields to persistence object
// Number and placement time are owned by the store and are not copied here
func FromOrderDomain(o *order.Order) *OrderPO {
	window := o.Window()
	p := &OrderPO{
		ID:                       o.OrderID(),
		StartDesiredDeliveryTime: window.Start,
		EndDesiredDeliveryTime:   window.End,
		CompletedAt:              o.CompletedAt(),
		AccountID:                o.AccountID(),
		DeliveryAddressID:        o.Address().ID,
		OrderStatusID:            o.Status().Ptr(),
		ClientStatusLabel:        o.ClientLabel(),
		ShippingCost:             o.ShippingCost(),
		GoodsCost:                o.GoodsCost(),
		PaymentMethod:            o.PaymentMethod(),
		IsPaid:                   o.Paid(),
		CommentFromClient:        o.ClientComment(),
		CommentFromManager:       o.ManagerComment(),
		NameClient:               o.ClientName(),
		NumberPhoneClient:        o.ClientPhone(),
	}
	if change := o.PrepareChange(); change != nil {
		p.PrepareChangeMoney = decimal.NewNullDecimal(*change)
	}
	return p
}

// FromLineItems Convert domain line items to persistence objects
func FromLineItems(orderID int64, items []order.LineItem) []CompositionOrderPO {
	pos := make([]CompositionOrderPO, len(items))
	for i, item := range items {
		pos[i] = CompositionOrderPO{
			OrderID:       orderID,
			DishID:        item.DishID,
			QuantityOrder: item.Quantity,
			PricePerUnit:  item.UnitPrice,
		}
	}
	return pos
}

// ToDomain Convert persistence object to domain line item
func (p *CompositionOrderPO) ToDomain() order.LineItem {
	return order.LineItem{
		ID:        p.ID,
		DishID:    p.DishID,
		Quantity:  p.QuantityOrder,
		UnitPrice: p.PricePerUnit,
	}
}

// ToDomain Convert persistence objects to domain model
func (p *OrderPO) ToDomain(address *DeliveryAddressPO, itemPOs []CompositionOrderPO) *order.Order {
	items := make([]order.LineItem, len(itemPOs))
	for i := range itemPOs {
		items[i] = itemPOs[i].ToDomain()
	}

	var addr order.Address
	if address != nil {
		addr = address.ToDomain()
	}

	var change *decimal.Decimal
	if p.PrepareChangeMoney.Valid {
		v := p.PrepareChangeMoney.Decimal
		change = &v
	}

	number := ""
	if p.OrderNumber != nil {
		number = *p.OrderNumber
	}

	return order.RebuildFromDTO(order.ReconstructionDTO{
		ID:          p.ID,
		Number:      number,
		PlacedAt:    p.PlacedAt,
		CompletedAt: p.CompletedAt,
		Status:      status.RefFromPtr(p.OrderStatusID),
		ClientLabel: p.ClientStatusLabel,
		Draft: order.Draft{
			Address:        addr,
			Window:         order.DeliveryWindow{Start: p.StartDesiredDeliveryTime, End: p.EndDesiredDeliveryTime},
			Items:          items,
			AccountID:      p.AccountID,
			ShippingCost:   p.ShippingCost,
			GoodsCost:      p.GoodsCost,
			PaymentMethod:  p.PaymentMethod,
			Paid:           p.IsPaid,
			PrepareChange:  change,
			ClientComment:  p.CommentFromClient,
			ManagerComment: p.CommentFromManager,
			ClientName:     p.NameClient,
			ClientPhone:    p.NumberPhoneClient,
		},
	})
}
