// Package cart exposes the shopping cart operation the checkout depends on.
package cart

import "context"

// Repository is the cart collaborator.
type Repository interface {
	// ClearByAccount removes every cart entry of the account and returns the row count.
	ClearByAccount(ctx context.Context, accountID int64) (int64, error)
}
