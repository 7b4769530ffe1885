package gormdb

import (
	"context"

	"orderflow/domain/cart"
	"orderflow/infrastructure/persistence"
	"orderflow/infrastructure/persistence/gormdb/po"

	"gorm.io/gorm"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// getDB returns the transaction from context if available, otherwise the default db
func (r *CartRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *CartRepository) ClearByAccount(ctx context.Context, accountID int64) (int64, error) {
	result := r.getDB(ctx).Where("account_id = ?", accountID).Delete(&po.ShoppingCartPO{})
	return result.RowsAffected, result.Error
}

// Compile-time interface implementation check
var _ cart.Repository = (*CartRepository)(nil)
