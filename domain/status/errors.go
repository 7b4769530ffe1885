package status

import (
	"fmt"

	"orderflow/domain/shared"
)

var (
	// ErrStatusNotFound a catalog entry addressed directly does not exist
	ErrStatusNotFound = fmt.Errorf("order status not found: %w", shared.ErrNotFound)

	// ErrUnknownStatus an order references a status id missing from the catalog
	ErrUnknownStatus = fmt.Errorf("unknown order status: %w", shared.ErrInvalidInput)

	// ErrInvalidStatus catalog entry attributes failed validation
	ErrInvalidStatus = fmt.Errorf("invalid order status: %w", shared.ErrInvalidInput)

	// ErrSecondPositiveFinal at most one status may be final-positive
	ErrSecondPositiveFinal = fmt.Errorf("only one final positive status is allowed: %w", shared.ErrConflict)

	// ErrStatusInUse the status is still referenced by orders
	ErrStatusInUse = fmt.Errorf("order status is in use: %w", shared.ErrConflict)
)

func NewStatusNotFoundError(id int64) error {
	return shared.NewDomainError(ErrStatusNotFound, "order_status", "",
		fmt.Sprintf("order status %d not found", id))
}

func NewUnknownStatusError(id int64) error {
	return shared.NewDomainError(ErrUnknownStatus, "order_status", "orderStatusId",
		fmt.Sprintf("order status %d does not exist", id))
}

func NewInvalidStatusError(field, reason string) error {
	return shared.NewDomainError(ErrInvalidStatus, "order_status", field, reason)
}

func NewSecondPositiveFinalError() error {
	return shared.NewDomainError(ErrSecondPositiveFinal, "order_status", "isFinalResultPositive",
		"a status with a positive final result already exists")
}

func NewStatusInUseError(id int64) error {
	return shared.NewDomainError(ErrStatusInUse, "order_status", "",
		fmt.Sprintf("order status %d is used by orders", id))
}
