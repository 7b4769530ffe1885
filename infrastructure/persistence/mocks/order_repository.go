package mocks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"orderflow/domain/order"
	"orderflow/domain/status"
	"orderflow/infrastructure/persistence/gormdb/po"
)

// OrderRepository in-memory order store; list filtering evaluates the
// domain specifications directly
type OrderRepository struct {
	s *Store
}

func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

func (r *OrderRepository) CreateAddress(ctx context.Context, a *order.Address) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreateAddress"); err != nil {
		return 0, err
	}
	p := po.FromAddressDomain(a)
	p.ID = r.s.id()
	r.s.addresses[p.ID] = *p
	return p.ID, nil
}

func (r *OrderRepository) UpdateAddress(ctx context.Context, a *order.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("UpdateAddress"); err != nil {
		return err
	}
	if _, ok := r.s.addresses[a.ID]; !ok {
		return fmt.Errorf("delivery address %d not found", a.ID)
	}
	r.s.addresses[a.ID] = *po.FromAddressDomain(a)
	return nil
}

func (r *OrderRepository) CreateHeader(ctx context.Context, o *order.Order) (int64, time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreateHeader"); err != nil {
		return 0, time.Time{}, err
	}
	if err := r.s.checkStatusExists(o.Status()); err != nil {
		return 0, time.Time{}, err
	}
	p := po.FromOrderDomain(o)
	p.ID = r.s.id()
	p.PlacedAt = r.s.now()
	r.s.orders[p.ID] = *p
	return p.ID, p.PlacedAt, nil
}

func (r *OrderRepository) UpdateHeader(ctx context.Context, o *order.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("UpdateHeader"); err != nil {
		return err
	}
	current, ok := r.s.orders[o.OrderID()]
	if !ok {
		return order.NewOrderNotFoundError(o.OrderID())
	}
	if err := r.s.checkStatusExists(o.Status()); err != nil {
		return err
	}
	p := po.FromOrderDomain(o)
	p.OrderNumber = current.OrderNumber
	p.PlacedAt = current.PlacedAt
	r.s.orders[p.ID] = *p
	return nil
}

func (r *OrderRepository) AssignOrderNumber(ctx context.Context, id int64) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("AssignOrderNumber"); err != nil {
		return "", err
	}
	p, ok := r.s.orders[id]
	if !ok {
		return "", order.NewOrderNotFoundError(id)
	}
	number := order.FormatNumber(id)
	if p.OrderNumber != nil && *p.OrderNumber != number {
		return "", order.NewNumberAlreadyAssignedError(*p.OrderNumber, number)
	}
	p.OrderNumber = &number
	r.s.orders[id] = p
	return number, nil
}

func (r *OrderRepository) ReplaceLineItems(ctx context.Context, orderID int64, items []order.LineItem) ([]order.LineItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("ReplaceLineItems"); err != nil {
		return nil, err
	}
	itemPOs := po.FromLineItems(orderID, items)
	stored := make([]order.LineItem, len(itemPOs))
	for i := range itemPOs {
		itemPOs[i].ID = r.s.id()
		stored[i] = itemPOs[i].ToDomain()
	}
	r.s.items[orderID] = itemPOs
	return stored, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("FindByID"); err != nil {
		return nil, err
	}
	p, ok := r.s.orders[id]
	if !ok {
		return nil, order.NewOrderNotFoundError(id)
	}
	return r.s.hydrate(p), nil
}

func (r *OrderRepository) ListByAccount(ctx context.Context, accountID int64) ([]*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*order.Order
	for _, p := range r.s.sortedOrders() {
		if p.AccountID != nil && *p.AccountID == accountID {
			out = append(out, r.s.hydrate(p))
		}
	}
	if out == nil {
		out = []*order.Order{}
	}
	return out, nil
}

func (r *OrderRepository) List(ctx context.Context, q order.ListQuery) (*order.Page, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*order.Order
	for _, p := range r.s.sortedOrders() {
		o := r.s.hydrate(p)
		if q.Spec == nil || q.Spec.IsSatisfiedBy(ctx, o) {
			matched = append(matched, o)
		}
	}

	page := &order.Page{Total: int64(len(matched)), Page: q.Page, Limit: q.Limit, Orders: []*order.Order{}}
	if q.Limit <= 0 {
		page.Orders = append(page.Orders, matched...)
		return page, nil
	}
	start := q.Offset()
	if start >= len(matched) {
		return page, nil
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	page.Orders = append(page.Orders, matched[start:end]...)
	return page, nil
}

func (r *OrderRepository) BulkSetStatus(ctx context.Context, ids []int64, res status.Resolution, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("BulkSetStatus"); err != nil {
		return 0, err
	}
	if err := r.s.checkStatusExists(res.Status); err != nil {
		return 0, err
	}

	var matched int64
	for _, id := range uniqueIDs(ids) {
		p, ok := r.s.orders[id]
		if !ok {
			continue
		}
		o := r.s.hydrate(p)
		o.ApplyResolution(res, now)
		p.OrderStatusID = o.Status().Ptr()
		p.ClientStatusLabel = o.ClientLabel()
		p.CompletedAt = o.CompletedAt()
		r.s.orders[id] = p
		matched++
	}
	return matched, nil
}

func (r *OrderRepository) BulkSetPaid(ctx context.Context, ids []int64, paid bool) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("BulkSetPaid"); err != nil {
		return 0, err
	}
	var matched int64
	for _, id := range uniqueIDs(ids) {
		p, ok := r.s.orders[id]
		if !ok {
			continue
		}
		p.IsPaid = paid
		r.s.orders[id] = p
		matched++
	}
	return matched, nil
}

func (r *OrderRepository) Delete(ctx context.Context, ids []int64) (order.DeleteResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Delete"); err != nil {
		return order.DeleteResult{}, err
	}
	var result order.DeleteResult
	for _, id := range uniqueIDs(ids) {
		p, ok := r.s.orders[id]
		if !ok {
			continue
		}
		delete(r.s.items, id)
		delete(r.s.orders, id)
		result.Orders++
		if _, ok := r.s.addresses[p.DeliveryAddressID]; ok {
			delete(r.s.addresses, p.DeliveryAddressID)
			result.Addresses++
		}
	}
	return result, nil
}

// hydrate must be called with mu held
func (s *Store) hydrate(p po.OrderPO) *order.Order {
	var address *po.DeliveryAddressPO
	if a, ok := s.addresses[p.DeliveryAddressID]; ok {
		address = &a
	}
	return p.ToDomain(address, s.items[p.ID])
}

// sortedOrders newest first; must be called with mu held
func (s *Store) sortedOrders() []po.OrderPO {
	out := make([]po.OrderPO, 0, len(s.orders))
	for _, p := range s.orders {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.After(out[j].PlacedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// checkStatusExists mimics the foreign key on order_status_id; must be called with mu held
func (s *Store) checkStatusExists(ref status.Ref) error {
	id, assigned := ref.ID()
	if !assigned {
		return nil
	}
	if _, ok := s.statuses[id]; !ok {
		return fmt.Errorf("foreign key violation: order_status_id %d", id)
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

var _ order.Repository = (*OrderRepository)(nil)

// AddOrderWithStatus seeds a bare order referencing statusID and returns its id
func (s *Store) AddOrderWithStatus(statusID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	addressID := s.id()
	s.addresses[addressID] = po.DeliveryAddressPO{ID: addressID, City: "Москва", Street: "Тверская", House: "1"}
	id := s.id()
	number := order.FormatNumber(id)
	s.orders[id] = po.OrderPO{
		ID:                id,
		OrderNumber:       &number,
		PlacedAt:          s.now(),
		DeliveryAddressID: addressID,
		OrderStatusID:     &statusID,
		PaymentMethod:     "cash",
	}
	return id
}
