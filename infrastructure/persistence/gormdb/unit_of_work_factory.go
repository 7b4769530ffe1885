package gormdb

import (
	"orderflow/domain/shared"
	"orderflow/infrastructure/persistence/retry"

	"gorm.io/gorm"
)

// UnitOfWorkFactory 每次业务操作创建一个独立的 UnitOfWork
type UnitOfWorkFactory struct {
	db          *gorm.DB
	retryConfig retry.Config
}

func NewUnitOfWorkFactory(db *gorm.DB, retryConfig retry.Config) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		db:          db,
		retryConfig: retryConfig,
	}
}

func (f *UnitOfWorkFactory) New() shared.UnitOfWork {
	uow := NewUnitOfWork(f.db)
	uow.SetRetryConfig(f.retryConfig)
	return uow
}

var _ shared.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
