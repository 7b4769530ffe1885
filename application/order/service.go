/*
Package order Application Layer - Order Lifecycle Orchestration

Responsibilities of Application Layer:
1. Validate commands before any write is attempted
2. Read the status catalog once per transaction and resolve the target status
3. Run each multi-step operation in its own UnitOfWork (one transaction)
4. Record order.placed in the aggregate; the UoW writes it to the outbox before commit
5. After commit, push the new-order notice best-effort (client checkout only)

Important: the post-commit push never changes the result of the operation.
Its failures and panics are logged and suppressed.
*/
package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"orderflow/domain/cart"
	"orderflow/domain/order"
	"orderflow/domain/shared"
	"orderflow/domain/status"
	"orderflow/pkg/logger"
	"orderflow/pkg/tracing"
	"orderflow/pkg/validation"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// NewOrderNotifier pushes new-order notices to connected operators
type NewOrderNotifier interface {
	PublishNewOrder(ctx context.Context, notice order.NewOrderNotice) error
}

// ApplicationService Order lifecycle service
type ApplicationService struct {
	uowFactory shared.UnitOfWorkFactory
	orders     order.Repository
	statuses   status.CatalogProvider
	carts      cart.Repository
	notifier   NewOrderNotifier

	lenientCreateStatus bool
	clock               func() time.Time
	log                 *zap.Logger

	// 未完成的提交后推送
	pending sync.WaitGroup
}

type Option func(*ApplicationService)

func WithNotifier(n NewOrderNotifier) Option {
	return func(s *ApplicationService) { s.notifier = n }
}

func WithClock(clock func() time.Time) Option {
	return func(s *ApplicationService) { s.clock = clock }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *ApplicationService) { s.log = log }
}

// WithLenientCreateStatus coerces unknown status ids to Unassigned on manager create
func WithLenientCreateStatus(lenient bool) Option {
	return func(s *ApplicationService) { s.lenientCreateStatus = lenient }
}

// NewApplicationService Create order application service
func NewApplicationService(
	uowFactory shared.UnitOfWorkFactory,
	orders order.Repository,
	statuses status.CatalogProvider,
	carts cart.Repository,
	opts ...Option,
) *ApplicationService {
	s := &ApplicationService{
		uowFactory: uowFactory,
		orders:     orders,
		statuses:   statuses,
		carts:      carts,
		clock:      func() time.Time { return time.Now().UTC() },
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("order")
	return s
}

// PlaceOrderAsClient client checkout; clears the account's cart in the same transaction
func (s *ApplicationService) PlaceOrderAsClient(ctx context.Context, cmd PlaceOrderCommand) (result *PlacementResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "order.PlaceOrderAsClient")
	defer func() { tracing.End(span, err) }()

	if err := validation.Struct("order", cmd); err != nil {
		return nil, err
	}
	draft := cmd.draft()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	// 每次重试都重新构建聚合，避免编号与事件残留
	var o *order.Order
	uow := s.uowFactory.New()
	err = uow.Execute(ctx, func(ctx context.Context) error {
		var err error
		if o, err = order.NewOrder(draft, status.UnassignedResolution(), s.clock()); err != nil {
			return err
		}
		if err := s.persistNew(ctx, o); err != nil {
			return err
		}
		if accountID := o.AccountID(); accountID != nil {
			if _, err := s.carts.ClearByAccount(ctx, *accountID); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		}
		o.MarkPlaced(order.ChannelClient)
		uow.RegisterNew(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("order.id", o.OrderID()), attribute.String("order.number", o.Number()))
	logger.Ctx(ctx, s.log).Info("Order placed",
		zap.Int64("order_id", o.OrderID()),
		zap.String("order_number", o.Number()),
		zap.String("channel", order.ChannelClient))

	s.notifyNewOrder(ctx, order.NoticeFor(o))
	return &PlacementResult{Success: true, OrderID: o.OrderID(), OrderNumber: o.Number()}, nil
}

// CreateOrderAsManager manager order entry; no account, no cart, no push
func (s *ApplicationService) CreateOrderAsManager(ctx context.Context, cmd ManagerOrderCommand) (result *PlacementResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "order.CreateOrderAsManager",
		attribute.String("order.status", cmd.OrderStatusID.Ref.String()))
	defer func() { tracing.End(span, err) }()

	if err := validation.Struct("order", cmd); err != nil {
		return nil, err
	}
	// 事务前先做字段校验，避免无效请求占用连接
	draft := cmd.draft()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var o *order.Order
	uow := s.uowFactory.New()
	err = uow.Execute(ctx, func(ctx context.Context) error {
		catalog, err := s.loadCatalog(ctx)
		if err != nil {
			return err
		}
		res, err := s.resolveForCreate(catalog, cmd.OrderStatusID.Ref)
		if err != nil {
			return err
		}
		if o, err = order.NewOrder(draft, res, s.clock()); err != nil {
			return err
		}
		if err := s.persistNew(ctx, o); err != nil {
			return err
		}
		o.MarkPlaced(order.ChannelManager)
		uow.RegisterNew(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Ctx(ctx, s.log).Info("Order placed",
		zap.Int64("order_id", o.OrderID()),
		zap.String("order_number", o.Number()),
		zap.String("channel", order.ChannelManager))
	return &PlacementResult{Success: true, OrderID: o.OrderID(), OrderNumber: o.Number()}, nil
}

func (s *ApplicationService) resolveForCreate(catalog *status.Catalog, ref status.Ref) (status.Resolution, error) {
	if s.lenientCreateStatus {
		res := catalog.ResolveLenient(ref)
		if res.Status != ref {
			s.log.Warn("Unknown status coerced to unassigned", zap.String("status_id", ref.String()))
		}
		return res, nil
	}
	return catalog.Resolve(ref)
}

// persistNew 严格按 地址 -> 订单头 -> 订单号 -> 订单项 的顺序写入
func (s *ApplicationService) persistNew(ctx context.Context, o *order.Order) error {
	address := o.Address()
	addressID, err := s.orders.CreateAddress(ctx, &address)
	if err != nil {
		return fmt.Errorf("create address: %w", err)
	}
	o.AttachAddressID(addressID)

	id, placedAt, err := s.orders.CreateHeader(ctx, o)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	o.AssignIdentity(id, placedAt)

	number, err := s.orders.AssignOrderNumber(ctx, id)
	if err != nil {
		return fmt.Errorf("assign order number: %w", err)
	}
	if err := o.AssignNumber(number); err != nil {
		return err
	}

	items, err := s.orders.ReplaceLineItems(ctx, id, o.Items())
	if err != nil {
		return fmt.Errorf("save line items: %w", err)
	}
	o.ReplaceItems(items)
	return nil
}

// UpdateOrder replaces every editable field; an unknown status id is rejected
func (s *ApplicationService) UpdateOrder(ctx context.Context, id int64, cmd ManagerOrderCommand) (detail *OrderDetail, err error) {
	ctx, span := tracing.StartSpan(ctx, "order.UpdateOrder",
		attribute.Int64("order.id", id),
		attribute.String("order.status", cmd.OrderStatusID.Ref.String()))
	defer func() { tracing.End(span, err) }()

	if err := validation.Struct("order", cmd); err != nil {
		return nil, err
	}
	draft := cmd.draft()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var (
		o       *order.Order
		catalog *status.Catalog
	)
	err = s.uowFactory.New().Execute(ctx, func(ctx context.Context) error {
		var err error
		if o, err = s.orders.FindByID(ctx, id); err != nil {
			return err
		}
		if catalog, err = s.loadCatalog(ctx); err != nil {
			return err
		}
		res, err := catalog.Resolve(cmd.OrderStatusID.Ref)
		if err != nil {
			return err
		}
		if err := o.Revise(draft, res, s.clock()); err != nil {
			return err
		}

		if err := s.orders.UpdateHeader(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		address := o.Address()
		if err := s.orders.UpdateAddress(ctx, &address); err != nil {
			return fmt.Errorf("update address: %w", err)
		}
		items, err := s.orders.ReplaceLineItems(ctx, id, o.Items())
		if err != nil {
			return fmt.Errorf("replace line items: %w", err)
		}
		o.ReplaceItems(items)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Ctx(ctx, s.log).Info("Order updated", zap.Int64("order_id", id), zap.String("status_id", o.Status().String()))
	return toOrderDetail(o, catalog), nil
}

// BulkChangeStatus resolves the target once and applies it to every matched id
func (s *ApplicationService) BulkChangeStatus(ctx context.Context, cmd BulkStatusCommand) (result *BulkResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "order.BulkChangeStatus",
		attribute.Int("order.count", len(cmd.IDs)),
		attribute.String("order.status", cmd.OrderStatusID.Ref.String()))
	defer func() { tracing.End(span, err) }()

	if err := validation.Struct("order", cmd); err != nil {
		return nil, err
	}
	ids := uniqueIDs(cmd.IDs)

	var updated int64
	err = s.uowFactory.New().Execute(ctx, func(ctx context.Context) error {
		catalog, err := s.loadCatalog(ctx)
		if err != nil {
			return err
		}
		res, err := catalog.Resolve(cmd.OrderStatusID.Ref)
		if err != nil {
			return err
		}
		if updated, err = s.orders.BulkSetStatus(ctx, ids, res, s.clock()); err != nil {
			return fmt.Errorf("bulk set status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Ctx(ctx, s.log).Info("Order statuses changed",
		zap.Int("requested", len(ids)),
		zap.Int64("updated", updated),
		zap.String("status_id", cmd.OrderStatusID.Ref.String()))
	return &BulkResult{Success: true, Updated: updated, Warnings: underMatch("updated", len(ids), updated)}, nil
}

func (s *ApplicationService) BulkChangePaymentStatus(ctx context.Context, cmd BulkPaymentCommand) (result *BulkResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "order.BulkChangePaymentStatus", attribute.Int("order.count", len(cmd.IDs)))
	defer func() { tracing.End(span, err) }()

	if err := validation.Struct("order", cmd); err != nil {
		return nil, err
	}
	ids := uniqueIDs(cmd.IDs)

	var updated int64
	err = s.uowFactory.New().Execute(ctx, func(ctx context.Context) error {
		var err error
		if updated, err = s.orders.BulkSetPaid(ctx, ids, *cmd.IsPaid); err != nil {
			return fmt.Errorf("bulk set paid: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &BulkResult{Success: true, Updated: updated, Warnings: underMatch("updated", len(ids), updated)}, nil
}

// DeleteOrders removes the orders with their line items and owned addresses
func (s *ApplicationService) DeleteOrders(ctx context.Context, ids []int64) (result *DeleteResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "order.DeleteOrders", attribute.Int("order.count", len(ids)))
	defer func() { tracing.End(span, err) }()

	if err := validateIDs(ids); err != nil {
		return nil, err
	}
	ids = uniqueIDs(ids)

	var deleted order.DeleteResult
	err = s.uowFactory.New().Execute(ctx, func(ctx context.Context) error {
		var err error
		if deleted, err = s.orders.Delete(ctx, ids); err != nil {
			return fmt.Errorf("delete orders: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Ctx(ctx, s.log).Info("Orders deleted",
		zap.Int("requested", len(ids)),
		zap.Int64("orders", deleted.Orders),
		zap.Int64("addresses", deleted.Addresses))
	return &DeleteResult{
		Success:          true,
		DeletedOrders:    deleted.Orders,
		DeletedAddresses: deleted.Addresses,
		Warnings:         underMatch("deleted", len(ids), deleted.Orders),
	}, nil
}

func (s *ApplicationService) GetOrder(ctx context.Context, id int64) (*OrderDetail, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return toOrderDetail(o, catalog), nil
}

func (s *ApplicationService) ListOrders(ctx context.Context, q ListOrdersQuery) (*OrderList, error) {
	if err := validation.Struct("order", q); err != nil {
		return nil, err
	}
	if q.PlacedFrom != nil && q.PlacedTo != nil && q.PlacedTo.Before(*q.PlacedFrom) {
		return nil, order.NewInvalidOrderError("placedTo", "date range ends before it starts")
	}
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}

	page, err := s.orders.List(ctx, order.ListQuery{Spec: q.filter().Specification(), Page: q.Page, Limit: q.Limit})
	if err != nil {
		return nil, err
	}
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return &OrderList{
		Total:       page.Total,
		CurrentPage: page.Page,
		Limit:       page.Limit,
		Data:        toOrderDetails(page.Orders, catalog),
	}, nil
}

// ListOrdersByAccount newest first
func (s *ApplicationService) ListOrdersByAccount(ctx context.Context, accountID int64) ([]*OrderDetail, error) {
	if accountID <= 0 {
		return nil, order.NewInvalidOrderError("accountId", "account id must be positive")
	}
	orders, err := s.orders.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return toOrderDetails(orders, catalog), nil
}

// Wait blocks until every post-commit push has finished
func (s *ApplicationService) Wait() {
	s.pending.Wait()
}

func (s *ApplicationService) loadCatalog(ctx context.Context) (*status.Catalog, error) {
	catalog, err := status.LoadCatalog(ctx, s.statuses)
	if err != nil {
		return nil, fmt.Errorf("load status catalog: %w", err)
	}
	return catalog, nil
}

// notifyNewOrder 在独立 goroutine 中推送，不阻塞响应；错误与 panic 只记录日志
func (s *ApplicationService) notifyNewOrder(ctx context.Context, notice order.NewOrderNotice) {
	if s.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Ctx(ctx, s.log).Error("New order notification panicked",
					zap.Int64("order_id", notice.OrderID),
					zap.Any("panic", r))
			}
		}()
		if err := s.notifier.PublishNewOrder(ctx, notice); err != nil {
			logger.Ctx(ctx, s.log).Warn("New order notification failed",
				zap.Int64("order_id", notice.OrderID),
				zap.Error(err))
		}
	}()
}

func validateIDs(ids []int64) error {
	if len(ids) == 0 {
		return order.NewEmptyIDListError()
	}
	for i, id := range ids {
		if id <= 0 {
			return order.NewInvalidOrderError(fmt.Sprintf("ids[%d]", i), "order id must be positive")
		}
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func underMatch(verb string, requested int, matched int64) []string {
	if matched >= int64(requested) {
		return nil
	}
	return []string{fmt.Sprintf("%d of %d orders were not found and not %s", int64(requested)-matched, requested, verb)}
}

// IsClientError reports whether err is caused by the caller
func IsClientError(err error) bool {
	return errors.Is(err, shared.ErrInvalidInput) ||
		errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrConflict)
}
