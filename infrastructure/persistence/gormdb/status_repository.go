package gormdb

import (
	"context"
	"errors"

	"orderflow/domain/status"
	"orderflow/infrastructure/persistence"
	"orderflow/infrastructure/persistence/gormdb/po"

	"gorm.io/gorm"
)

// StatusRepository GORM implementation of the status catalog
type StatusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// getDB returns the transaction from context if available, otherwise the default db
func (r *StatusRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *StatusRepository) ListDescendingBySequence(ctx context.Context) ([]*status.OrderStatus, error) {
	return r.list(ctx, "sequence_number DESC, id DESC")
}

func (r *StatusRepository) ListAscending(ctx context.Context) ([]*status.OrderStatus, error) {
	return r.list(ctx, "sequence_number ASC, id ASC")
}

func (r *StatusRepository) list(ctx context.Context, orderBy string) ([]*status.OrderStatus, error) {
	var statusPOs []po.OrderStatusPO
	if err := r.getDB(ctx).Order(orderBy).Find(&statusPOs).Error; err != nil {
		return nil, err
	}
	statuses := make([]*status.OrderStatus, len(statusPOs))
	for i := range statusPOs {
		statuses[i] = statusPOs[i].ToDomain()
	}
	return statuses, nil
}

func (r *StatusRepository) FindByID(ctx context.Context, id int64) (*status.OrderStatus, error) {
	var statusPO po.OrderStatusPO
	if err := r.getDB(ctx).First(&statusPO, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.NewStatusNotFoundError(id)
		}
		return nil, err
	}
	return statusPO.ToDomain(), nil
}

func (r *StatusRepository) MaxSequence(ctx context.Context) (int, error) {
	var max int
	if err := r.getDB(ctx).Model(&po.OrderStatusPO{}).
		Select("COALESCE(MAX(sequence_number), 0)").Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

func (r *StatusRepository) HasPositiveFinal(ctx context.Context, excludeID int64) (bool, error) {
	query := r.getDB(ctx).Model(&po.OrderStatusPO{}).Where("is_final_result_positive = ?", true)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *StatusRepository) Create(ctx context.Context, s *status.OrderStatus) error {
	statusPO := po.FromStatusDomain(s)
	statusPO.ID = 0
	if err := r.getDB(ctx).Create(statusPO).Error; err != nil {
		return err
	}
	s.AssignID(statusPO.ID)
	return nil
}

func (r *StatusRepository) Update(ctx context.Context, s *status.OrderStatus) error {
	statusPO := po.FromStatusDomain(s)
	result := r.getDB(ctx).Model(&po.OrderStatusPO{}).
		Where("id = ?", s.ID()).
		Select("*").Omit("id").
		Updates(statusPO)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return status.NewStatusNotFoundError(s.ID())
	}
	return nil
}

// Delete 被订单引用的状态不可删除；先计数给出明确错误，并发插入由外键 RESTRICT 拦截
func (r *StatusRepository) Delete(ctx context.Context, id int64) error {
	db := r.getDB(ctx)

	var referenced int64
	if err := db.Model(&po.OrderPO{}).Where("order_status_id = ?", id).Count(&referenced).Error; err != nil {
		return err
	}
	if referenced > 0 {
		return status.NewStatusInUseError(id)
	}

	result := db.Where("id = ?", id).Delete(&po.OrderStatusPO{})
	if result.Error != nil {
		if isForeignKeyViolation(result.Error) {
			return status.NewStatusInUseError(id)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return status.NewStatusNotFoundError(id)
	}
	return nil
}

func (r *StatusRepository) UpdateSequences(ctx context.Context, updates []status.SequenceUpdate) (int64, error) {
	db := r.getDB(ctx)

	var changed int64
	for _, u := range updates {
		result := db.Model(&po.OrderStatusPO{}).Where("id = ?", u.ID).Update("sequence_number", u.Sequence)
		if result.Error != nil {
			return changed, result.Error
		}
		changed += result.RowsAffected
	}
	return changed, nil
}

// Compile-time interface implementation check
var _ status.Repository = (*StatusRepository)(nil)
