package gormdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderflow/domain/order"
	"orderflow/domain/status"
	"orderflow/infrastructure/persistence"
	"orderflow/infrastructure/persistence/gormdb/po"
	"orderflow/infrastructure/persistence/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository GORM implementation of the order store
// Orders, delivery addresses and line items are written through separate
// tables; associations only carry foreign keys and are omitted on writes.
// The caller's transaction comes from ctx
type OrderRepository struct {
	db         *gorm.DB
	translator specification.Translator
	now        func() time.Time
}

// NewOrderRepository Create order repository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{
		db:         db,
		translator: specification.NewGormTranslator(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the placement clock
func (r *OrderRepository) WithClock(now func() time.Time) *OrderRepository {
	r.now = now
	return r
}

// getDB returns the transaction from context if available, otherwise the default db
func (r *OrderRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *OrderRepository) CreateAddress(ctx context.Context, a *order.Address) (int64, error) {
	addressPO := po.FromAddressDomain(a)
	addressPO.ID = 0
	if err := r.getDB(ctx).Create(addressPO).Error; err != nil {
		return 0, err
	}
	return addressPO.ID, nil
}

func (r *OrderRepository) UpdateAddress(ctx context.Context, a *order.Address) error {
	addressPO := po.FromAddressDomain(a)
	result := r.getDB(ctx).Model(&po.DeliveryAddressPO{}).
		Where("id = ?", a.ID).
		Select("*").Omit("id").
		Updates(addressPO)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delivery address %d: %w", a.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *OrderRepository) CreateHeader(ctx context.Context, o *order.Order) (int64, time.Time, error) {
	orderPO := po.FromOrderDomain(o)
	orderPO.ID = 0
	orderPO.PlacedAt = r.now()

	if err := r.getDB(ctx).Omit(clause.Associations).Create(orderPO).Error; err != nil {
		return 0, time.Time{}, translateError(err, "order", "order references a missing status or address")
	}
	return orderPO.ID, orderPO.PlacedAt, nil
}

// UpdateHeader rewrites every caller-owned column; number and placement time are kept
func (r *OrderRepository) UpdateHeader(ctx context.Context, o *order.Order) error {
	orderPO := po.FromOrderDomain(o)
	result := r.getDB(ctx).Model(&po.OrderPO{}).
		Where("id = ?", o.OrderID()).
		Select("*").Omit("id", "order_number", "placed_at", clause.Associations).
		Updates(orderPO)
	if result.Error != nil {
		return translateError(result.Error, "order", "order references a missing status")
	}
	if result.RowsAffected == 0 {
		return order.NewOrderNotFoundError(o.OrderID())
	}
	return nil
}

func (r *OrderRepository) AssignOrderNumber(ctx context.Context, id int64) (string, error) {
	number := order.FormatNumber(id)
	result := r.getDB(ctx).Model(&po.OrderPO{}).
		Where("id = ? AND (order_number IS NULL OR order_number = ?)", id, number).
		Update("order_number", number)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", order.NewOrderNotFoundError(id)
	}
	return number, nil
}

func (r *OrderRepository) ReplaceLineItems(ctx context.Context, orderID int64, items []order.LineItem) ([]order.LineItem, error) {
	db := r.getDB(ctx)
	if err := db.Where("order_id = ?", orderID).Delete(&po.CompositionOrderPO{}).Error; err != nil {
		return nil, err
	}

	itemPOs := po.FromLineItems(orderID, items)
	if len(itemPOs) > 0 {
		if err := db.Omit(clause.Associations).Create(&itemPOs).Error; err != nil {
			return nil, translateError(err, "order", "line item references a missing dish")
		}
	}

	stored := make([]order.LineItem, len(itemPOs))
	for i := range itemPOs {
		stored[i] = itemPOs[i].ToDomain()
	}
	return stored, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*order.Order, error) {
	db := r.getDB(ctx)

	var orderPO po.OrderPO
	if err := db.First(&orderPO, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.NewOrderNotFoundError(id)
		}
		return nil, err
	}

	orders, err := r.hydrate(db, []po.OrderPO{orderPO})
	if err != nil {
		return nil, err
	}
	return orders[0], nil
}

func (r *OrderRepository) ListByAccount(ctx context.Context, accountID int64) ([]*order.Order, error) {
	db := r.getDB(ctx)

	var orderPOs []po.OrderPO
	if err := db.Where("account_id = ?", accountID).
		Order("placed_at DESC").Order("id DESC").
		Find(&orderPOs).Error; err != nil {
		return nil, err
	}
	return r.hydrate(db, orderPOs)
}

func (r *OrderRepository) List(ctx context.Context, q order.ListQuery) (*order.Page, error) {
	db := r.getDB(ctx)

	base := db.Model(&po.OrderPO{})
	if scope := r.translator.Translate(q.Spec); scope != nil {
		base = base.Scopes(scope)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	var orderPOs []po.OrderPO
	query := base.Session(&gorm.Session{}).Order("orders.placed_at DESC").Order("orders.id DESC")
	if q.Limit > 0 {
		query = query.Offset(q.Offset()).Limit(q.Limit)
	}
	if err := query.Find(&orderPOs).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders, err := r.hydrate(db, orderPOs)
	if err != nil {
		return nil, err
	}
	return &order.Page{Total: total, Page: q.Page, Limit: q.Limit, Orders: orders}, nil
}

// hydrate batch-loads addresses and line items for the given headers
func (r *OrderRepository) hydrate(db *gorm.DB, orderPOs []po.OrderPO) ([]*order.Order, error) {
	if len(orderPOs) == 0 {
		return []*order.Order{}, nil
	}

	orderIDs := make([]int64, len(orderPOs))
	addressIDs := make([]int64, len(orderPOs))
	for i, p := range orderPOs {
		orderIDs[i] = p.ID
		addressIDs[i] = p.DeliveryAddressID
	}

	var addressPOs []po.DeliveryAddressPO
	if err := db.Where("id IN ?", addressIDs).Find(&addressPOs).Error; err != nil {
		return nil, fmt.Errorf("load delivery addresses: %w", err)
	}
	addresses := make(map[int64]*po.DeliveryAddressPO, len(addressPOs))
	for i := range addressPOs {
		addresses[addressPOs[i].ID] = &addressPOs[i]
	}

	var itemPOs []po.CompositionOrderPO
	if err := db.Where("order_id IN ?", orderIDs).Order("id ASC").Find(&itemPOs).Error; err != nil {
		return nil, fmt.Errorf("load line items: %w", err)
	}
	items := make(map[int64][]po.CompositionOrderPO, len(orderPOs))
	for _, item := range itemPOs {
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	orders := make([]*order.Order, len(orderPOs))
	for i := range orderPOs {
		orders[i] = orderPOs[i].ToDomain(addresses[orderPOs[i].DeliveryAddressID], items[orderPOs[i].ID])
	}
	return orders, nil
}

// BulkSetStatus 同一最终状态重复应用时保留原完成时间
func (r *OrderRepository) BulkSetStatus(ctx context.Context, ids []int64, res status.Resolution, now time.Time) (int64, error) {
	db := r.getDB(ctx)

	if res.Final {
		// 先于状态列更新完成时间，条件才能读到旧的状态值
		target, _ := res.Status.ID()
		if err := db.Model(&po.OrderPO{}).
			Where("id IN ?", ids).
			Where("(order_status_id IS NULL OR order_status_id <> ? OR completed_at IS NULL)", target).
			Update("completed_at", now).Error; err != nil {
			return 0, err
		}
	}

	updates := map[string]interface{}{
		"order_status_id":     res.Status.Ptr(),
		"client_status_label": res.ClientLabel,
	}
	if !res.Final {
		updates["completed_at"] = nil
	}

	result := db.Model(&po.OrderPO{}).Where("id IN ?", ids).Updates(updates)
	if result.Error != nil {
		return 0, translateError(result.Error, "order", "order status does not exist")
	}
	return result.RowsAffected, nil
}

func (r *OrderRepository) BulkSetPaid(ctx context.Context, ids []int64, paid bool) (int64, error) {
	result := r.getDB(ctx).Model(&po.OrderPO{}).Where("id IN ?", ids).Update("is_paid", paid)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Delete removes line items, then orders, then the addresses those orders owned
func (r *OrderRepository) Delete(ctx context.Context, ids []int64) (order.DeleteResult, error) {
	db := r.getDB(ctx)

	var addressIDs []int64
	if err := db.Model(&po.OrderPO{}).Where("id IN ?", ids).Pluck("delivery_address_id", &addressIDs).Error; err != nil {
		return order.DeleteResult{}, fmt.Errorf("collect delivery addresses: %w", err)
	}

	if err := db.Where("order_id IN ?", ids).Delete(&po.CompositionOrderPO{}).Error; err != nil {
		return order.DeleteResult{}, fmt.Errorf("delete line items: %w", err)
	}

	orders := db.Where("id IN ?", ids).Delete(&po.OrderPO{})
	if orders.Error != nil {
		return order.DeleteResult{}, fmt.Errorf("delete orders: %w", translateError(orders.Error, "order", "order is still referenced"))
	}

	var addressCount int64
	if len(addressIDs) > 0 {
		addresses := db.Where("id IN ?", addressIDs).Delete(&po.DeliveryAddressPO{})
		if addresses.Error != nil {
			return order.DeleteResult{}, fmt.Errorf("delete delivery addresses: %w", addresses.Error)
		}
		addressCount = addresses.RowsAffected
	}

	return order.DeleteResult{Orders: orders.RowsAffected, Addresses: addressCount}, nil
}

// Compile-time interface implementation check
var _ order.Repository = (*OrderRepository)(nil)
