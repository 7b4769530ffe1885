package gormdb

import (
	"context"
	"errors"
	"time"

	"orderflow/domain/account"
	"orderflow/infrastructure/persistence"
	"orderflow/infrastructure/persistence/gormdb/po"

	"gorm.io/gorm"
)

// AccountRepository read side of accounts plus the stale-client cleanup
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// getDB returns the transaction from context if available, otherwise the default db
func (r *AccountRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *AccountRepository) withRole(ctx context.Context) *gorm.DB {
	return r.getDB(ctx).Model(&po.AccountPO{}).
		Select("accounts.*, roles.name AS role_name").
		Joins("JOIN roles ON roles.id = accounts.role_id")
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*account.Account, error) {
	var row po.AccountRow
	result := r.withRole(ctx).Where("accounts.id = ?", id).Limit(1).Scan(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, account.NewAccountNotFoundError(id)
	}
	return row.ToDomain(), nil
}

func (r *AccountRepository) FindByLogin(ctx context.Context, login string) (*account.Account, error) {
	var row po.AccountRow
	result := r.withRole(ctx).Where("accounts.login = ?", login).Limit(1).Scan(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, account.ErrAccountNotFound
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, account.ErrAccountNotFound
	}
	return row.ToDomain(), nil
}

func (r *AccountRepository) DeleteUnconfirmedClients(ctx context.Context, cutoff time.Time) (int64, error) {
	db := r.getDB(ctx)
	clientRole := db.Session(&gorm.Session{NewDB: true}).
		Model(&po.RolePO{}).Select("id").Where("name = ?", account.RoleClient)

	result := db.Where("role_id IN (?)", clientRole).
		Where("is_email_confirmed = ?", false).
		Where("registered_at < ?", cutoff).
		Delete(&po.AccountPO{})
	if result.Error != nil {
		return 0, translateError(result.Error, "account", "account is still referenced")
	}
	return result.RowsAffected, nil
}

// Compile-time interface implementation check
var _ account.Repository = (*AccountRepository)(nil)
