package order

import "time"

// NewOrderNotice is pushed to connected operators after a checkout commits.
type NewOrderNotice struct {
	OrderID     int64
	OrderNumber string
	PlacedAt    time.Time
}

// NoticeFor builds the notice of a persisted order.
func NoticeFor(o *Order) NewOrderNotice {
	return NewOrderNotice{OrderID: o.id, OrderNumber: o.number, PlacedAt: o.placedAt}
}
