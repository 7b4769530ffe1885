package mocks

import (
	"context"
	"fmt"

	"orderflow/domain/shared"
)

// UnitOfWork serializes transactions on the store and restores the
// pre-transaction snapshot when fn fails
type UnitOfWork struct {
	store      *Store
	aggregates []shared.AggregateRoot
}

func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	u.store.txMu.Lock()
	defer u.store.txMu.Unlock()

	u.aggregates = make([]shared.AggregateRoot, 0)
	snap := u.store.snapshot()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in transaction: %v", r)
		}
		if err != nil {
			u.store.restore(snap)
		}
	}()

	if err = fn(ctx); err != nil {
		return err
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if failErr := u.store.fail("SaveEvent"); failErr != nil {
		return fmt.Errorf("failed to save event to outbox: %w", failErr)
	}
	for _, agg := range u.aggregates {
		for _, event := range agg.PullEvents() {
			if verr := shared.ValidateEvent(event); verr != nil {
				return fmt.Errorf("invalid domain event: %w", verr)
			}
			u.store.outbox = append(u.store.outbox, event)
		}
	}
	return nil
}

func (u *UnitOfWork) RegisterNew(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

// UnitOfWorkFactory hands out units bound to one store
type UnitOfWorkFactory struct {
	store *Store
}

func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

func (f *UnitOfWorkFactory) New() shared.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

var (
	_ shared.UnitOfWork        = (*UnitOfWork)(nil)
	_ shared.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
)
