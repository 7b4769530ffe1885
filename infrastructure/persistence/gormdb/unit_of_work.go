package gormdb

import (
	"context"
	"fmt"

	"orderflow/domain/shared"
	"orderflow/infrastructure/persistence"
	"orderflow/infrastructure/persistence/retry"

	"gorm.io/gorm"
)

// UnitOfWork implements the Unit of Work pattern with GORM
// It manages database transactions and collects domain events from aggregates
type UnitOfWork struct {
	db               *gorm.DB
	aggregates       []shared.AggregateRoot
	outboxRepository *OutboxRepository
	retryConfig      retry.Config
}

// NewUnitOfWork creates a new UnitOfWork instance
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{
		db:               db,
		aggregates:       make([]shared.AggregateRoot, 0),
		outboxRepository: NewOutboxRepository(db),
		retryConfig:      retry.DefaultConfig,
	}
}

// SetRetryConfig updates the retry configuration for this UnitOfWork
func (u *UnitOfWork) SetRetryConfig(config retry.Config) {
	u.retryConfig = config
}

// Execute runs fn inside one database transaction.
// Repositories pick the transaction up from ctx. Events of registered
// aggregates are written to the outbox before commit. Any error rolls the
// whole transaction back; deadlocks and serialization failures are retried.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	executeOnce := func(ctx context.Context) error {
		// Reset aggregates for this attempt
		u.aggregates = make([]shared.AggregateRoot, 0)

		tx := u.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("failed to begin transaction: %w", tx.Error)
		}

		txCtx := persistence.ContextWithTx(ctx, tx)

		if err := u.run(txCtx, fn); err != nil {
			tx.Rollback()
			return err
		}

		for _, agg := range u.aggregates {
			for _, event := range agg.PullEvents() {
				if err := u.outboxRepository.SaveEvent(txCtx, event); err != nil {
					tx.Rollback()
					return fmt.Errorf("failed to save event to outbox: %w", err)
				}
			}
		}

		if err := tx.Commit().Error; err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		return nil
	}

	return retry.ExecuteWithRetry(ctx, u.retryConfig, executeOnce)
}

// run converts a panic inside fn into an error so the transaction is rolled back
func (u *UnitOfWork) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in transaction: %v", r)
		}
	}()
	return fn(ctx)
}

// RegisterNew registers a newly created aggregate root for event collection
func (u *UnitOfWork) RegisterNew(aggregate shared.AggregateRoot) {
	u.aggregates = append(u.aggregates, aggregate)
}

// Compile-time check that UnitOfWork implements shared.UnitOfWork
var _ shared.UnitOfWork = (*UnitOfWork)(nil)
