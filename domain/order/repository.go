package order

import (
	"context"
	"time"

	"orderflow/domain/shared"
	"orderflow/domain/status"
)

// ListQuery filters and paginates the manager order list.
type ListQuery struct {
	Spec  shared.Specification
	Page  int
	Limit int
}

// Offset of the first row of the requested page.
func (q ListQuery) Offset() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Page is one page of orders plus the total matching count.
type Page struct {
	Total  int64
	Page   int
	Limit  int
	Orders []*Order
}

// DeleteResult counts deleted orders and the addresses they owned.
type DeleteResult struct {
	Orders    int64
	Addresses int64
}

// Repository persists orders, their addresses and line items.
// Every write uses the transaction carried by ctx when present.
type Repository interface {
	CreateAddress(ctx context.Context, a *Address) (int64, error)
	UpdateAddress(ctx context.Context, a *Address) error

	// CreateHeader inserts the order row, returning its id and placement time.
	CreateHeader(ctx context.Context, o *Order) (int64, time.Time, error)
	UpdateHeader(ctx context.Context, o *Order) error

	// AssignOrderNumber persists FormatNumber(id); idempotent.
	AssignOrderNumber(ctx context.Context, id int64) (string, error)

	// ReplaceLineItems deletes the existing items and inserts the given set.
	ReplaceLineItems(ctx context.Context, orderID int64, items []LineItem) ([]LineItem, error)

	FindByID(ctx context.Context, id int64) (*Order, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*Order, error)
	List(ctx context.Context, q ListQuery) (*Page, error)

	// BulkSetStatus applies one resolution to every matched id and returns the match count.
	BulkSetStatus(ctx context.Context, ids []int64, res status.Resolution, now time.Time) (int64, error)
	BulkSetPaid(ctx context.Context, ids []int64, paid bool) (int64, error)

	// Delete removes orders, their line items and the addresses they owned.
	Delete(ctx context.Context, ids []int64) (DeleteResult, error)
}
