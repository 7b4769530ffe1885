package status

import "context"

// CatalogProvider is the read side consumed by order resolution.
type CatalogProvider interface {
	ListDescendingBySequence(ctx context.Context) ([]*OrderStatus, error)
}

// SequenceUpdate moves one status to a new position.
type SequenceUpdate struct {
	ID       int64
	Sequence int
}

// Repository is the administrative write path of the catalog.
type Repository interface {
	CatalogProvider

	// ListAscending returns the catalog in pipeline order.
	ListAscending(ctx context.Context) ([]*OrderStatus, error)

	// FindByID returns ErrStatusNotFound when absent.
	FindByID(ctx context.Context, id int64) (*OrderStatus, error)

	// MaxSequence returns 0 for an empty catalog.
	MaxSequence(ctx context.Context) (int, error)

	// HasPositiveFinal reports whether a status other than excludeID is final-positive.
	// Pass 0 to consider every status.
	HasPositiveFinal(ctx context.Context, excludeID int64) (bool, error)

	Create(ctx context.Context, s *OrderStatus) error
	Update(ctx context.Context, s *OrderStatus) error
	Delete(ctx context.Context, id int64) error

	// UpdateSequences returns how many rows were changed.
	UpdateSequences(ctx context.Context, updates []SequenceUpdate) (int64, error)
}
