package order

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"orderflow/domain/order"
	"orderflow/domain/shared"
	"orderflow/domain/status"
	"orderflow/infrastructure/persistence"
	"orderflow/infrastructure/persistence/mocks"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []order.NewOrderNotice
	err     error
	panic   bool
}

func (n *recordingNotifier) PublishNewOrder(ctx context.Context, notice order.NewOrderNotice) error {
	if n.panic {
		panic("socket exploded")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return n.err
}

func (n *recordingNotifier) received() []order.NewOrderNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]order.NewOrderNotice(nil), n.notices...)
}

type fixture struct {
	svc      *ApplicationService
	store    *mocks.Store
	notifier *recordingNotifier
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := mocks.NewStore().WithClock(func() time.Time { return fixedNow })
	notifier := &recordingNotifier{}
	core, logs := observer.New(zap.DebugLevel)

	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithNotifier(notifier),
		WithLogger(zap.New(core)),
	}
	svc := NewApplicationService(
		mocks.NewUnitOfWorkFactory(store),
		store.Orders(),
		store.Statuses(),
		store.Carts(),
		append(base, opts...)...,
	)
	return &fixture{svc: svc, store: store, notifier: notifier, logs: logs}
}

func address() AddressInput {
	return AddressInput{City: "Москва", Street: "Тверская", House: "7", Latitude: 55.76, Longitude: 37.61}
}

func items() []LineItemInput {
	return []LineItemInput{
		{DishID: 3, QuantityOrder: 2, PricePerUnit: decimal.RequireFromString("350.00")},
		{DishID: 8, QuantityOrder: 1, PricePerUnit: decimal.RequireFromString("120.50")},
	}
}

func clientCommand(accountID *int64) PlaceOrderCommand {
	return PlaceOrderCommand{
		Address:           address(),
		Items:             items(),
		AccountID:         accountID,
		ShippingCost:      decimal.RequireFromString("150"),
		GoodsCost:         decimal.RequireFromString("820.50"),
		PaymentMethod:     "cash",
		NameClient:        "Анна",
		NumberPhoneClient: "+79990000000",
	}
}

func managerCommand(ref status.Ref) ManagerOrderCommand {
	return ManagerOrderCommand{
		Address:       address(),
		Items:         items(),
		OrderStatusID: StatusID{Ref: ref},
		ShippingCost:  decimal.Zero,
		GoodsCost:     decimal.RequireFromString("820.50"),
		PaymentMethod: "card",
		NameClient:    "Звонок",
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestPlaceOrderAsClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accountA, accountB := int64(101), int64(202)
	f.store.AddCartItem(accountA, 3, 2)
	f.store.AddCartItem(accountA, 8, 1)
	f.store.AddCartItem(accountB, 5, 4)

	result, err := f.svc.PlaceOrderAsClient(ctx, clientCommand(int64Ptr(accountA)))
	if err != nil {
		t.Fatalf("PlaceOrderAsClient() error = %v", err)
	}
	f.svc.Wait()

	if !result.Success || result.OrderNumber != "VR-"+strconv.FormatInt(result.OrderID, 10) {
		t.Errorf("unexpected result %+v", result)
	}
	if got := f.store.CartSize(accountA); got != 0 {
		t.Errorf("cart of placing account has %d items, want 0", got)
	}
	if got := f.store.CartSize(accountB); got != 1 {
		t.Errorf("cart of other account has %d items, want 1", got)
	}

	detail, err := f.svc.GetOrder(ctx, result.OrderID)
	if err != nil {
		t.Fatalf("GetOrder() error = %v", err)
	}
	if detail.OrderStatusID.Ref.IsAssigned() || detail.Status != nil {
		t.Errorf("client order must start unassigned, got %+v", detail.OrderStatusID)
	}
	if detail.ClientStatus != status.DefaultClientLabel {
		t.Errorf("ClientStatus = %q, want %q", detail.ClientStatus, status.DefaultClientLabel)
	}
	if detail.OrderCompletionTime != nil {
		t.Errorf("new order must not be completed")
	}
	if len(detail.Items) != 2 || !detail.TotalCost.Equal(decimal.RequireFromString("970.50")) {
		t.Errorf("unexpected items %+v total %s", detail.Items, detail.TotalCost)
	}

	notices := f.notifier.received()
	if len(notices) != 1 || notices[0].OrderID != result.OrderID || notices[0].OrderNumber != result.OrderNumber {
		t.Errorf("notices = %+v", notices)
	}

	events := f.store.Outbox()
	if len(events) != 1 || events[0].EventName() != "order.placed" {
		t.Fatalf("outbox = %+v", events)
	}
	if placed, ok := events[0].(*order.OrderPlacedEvent); !ok || placed.Channel() != order.ChannelClient {
		t.Errorf("unexpected event %+v", events[0])
	}
}

func TestPlaceOrderAsGuestLeavesCartsAlone(t *testing.T) {
	f := newFixture(t)
	f.store.AddCartItem(7, 1, 1)

	if _, err := f.svc.PlaceOrderAsClient(context.Background(), clientCommand(nil)); err != nil {
		t.Fatalf("PlaceOrderAsClient() error = %v", err)
	}
	f.svc.Wait()
	if f.store.CartSize(7) != 1 {
		t.Errorf("guest checkout must not clear any cart")
	}
}

func TestPlaceOrderIsAtomic(t *testing.T) {
	steps := []string{"CreateAddress", "CreateHeader", "AssignOrderNumber", "ReplaceLineItems", "ClearCart", "SaveEvent"}
	for _, step := range steps {
		t.Run(step, func(t *testing.T) {
			f := newFixture(t)
			account := int64(5)
			f.store.AddCartItem(account, 1, 1)
			f.store.FailOn(step, errors.New("boom"))

			_, err := f.svc.PlaceOrderAsClient(context.Background(), clientCommand(&account))
			if err == nil {
				t.Fatal("expected failure")
			}
			f.svc.Wait()

			orders, addresses, lineItems := f.store.Counts()
			if orders != 0 || addresses != 0 || lineItems != 0 {
				t.Errorf("partial write left behind: orders=%d addresses=%d items=%d", orders, addresses, lineItems)
			}
			if f.store.CartSize(account) != 1 {
				t.Errorf("cart must survive a failed checkout")
			}
			if len(f.notifier.received()) != 0 {
				t.Errorf("no push expected for a failed checkout")
			}
			if len(f.store.Outbox()) != 0 {
				t.Errorf("no outbox event expected")
			}
		})
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	tests := map[string]func(*PlaceOrderCommand){
		"no items":       func(c *PlaceOrderCommand) { c.Items = nil },
		"zero quantity":  func(c *PlaceOrderCommand) { c.Items[0].QuantityOrder = 0 },
		"missing phone":  func(c *PlaceOrderCommand) { c.NumberPhoneClient = "" },
		"missing city":   func(c *PlaceOrderCommand) { c.Address.City = "" },
		"negative price": func(c *PlaceOrderCommand) { c.Items[1].PricePerUnit = decimal.NewFromInt(-1) },
		"one coordinate": func(c *PlaceOrderCommand) { c.Address.Coordinates = []float64{55.79} },
		"latitude range": func(c *PlaceOrderCommand) { c.Address.Coordinates = []float64{95, 49.12} },
		"inverted window": func(c *PlaceOrderCommand) {
			start := fixedNow.Add(2 * time.Hour)
			end := fixedNow.Add(time.Hour)
			c.StartDesiredDeliveryTime, c.EndDesiredDeliveryTime = &start, &end
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := clientCommand(nil)
			mutate(&cmd)
			_, err := f.svc.PlaceOrderAsClient(context.Background(), cmd)
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("error = %v, want invalid input", err)
			}
		})
	}
	if orders, _, _ := f.store.Counts(); orders != 0 {
		t.Errorf("invalid commands must not write, got %d orders", orders)
	}
}

func TestPlaceOrderAcceptsCoordinatesArray(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cmd := clientCommand(nil)
	cmd.Address.Latitude, cmd.Address.Longitude = 0, 0
	cmd.Address.Coordinates = []float64{55.7961, 49.1064}
	result, err := f.svc.PlaceOrderAsClient(ctx, cmd)
	if err != nil {
		t.Fatalf("PlaceOrderAsClient() error = %v", err)
	}
	f.svc.Wait()

	detail, err := f.svc.GetOrder(ctx, result.OrderID)
	if err != nil {
		t.Fatalf("GetOrder() error = %v", err)
	}
	if detail.Address.Latitude != 55.7961 || detail.Address.Longitude != 49.1064 {
		t.Errorf("address = %+v, want coordinates taken from the array", detail.Address)
	}
	if len(detail.Address.Coordinates) != 2 || detail.Address.Coordinates[0] != 55.7961 {
		t.Errorf("coordinates view = %v", detail.Address.Coordinates)
	}
}

func TestNotificationFailureDoesNotFailPlacement(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.err = errors.New("socket closed")
		result, err := f.svc.PlaceOrderAsClient(context.Background(), clientCommand(nil))
		if err != nil || !result.Success {
			t.Fatalf("placement must succeed, got %v", err)
		}
		f.svc.Wait()
		if f.logs.FilterMessage("New order notification failed").Len() != 1 {
			t.Errorf("expected a logged notification failure")
		}
	})

	t.Run("panic", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.panic = true
		if _, err := f.svc.PlaceOrderAsClient(context.Background(), clientCommand(nil)); err != nil {
			t.Fatalf("placement must succeed, got %v", err)
		}
		f.svc.Wait()
		if f.logs.FilterMessage("New order notification panicked").Len() != 1 {
			t.Errorf("expected a logged notification panic")
		}
		if orders, _, _ := f.store.Counts(); orders != 1 {
			t.Errorf("order must stay committed")
		}
	})
}

func TestCreateOrderAsManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddStatus("Принят", 1, status.FinalNone, true)
	cooking := f.store.AddStatus("Готовится", 2, status.FinalNone, false)
	delivered := f.store.AddStatus("Доставлен", 3, status.FinalPositive, true)

	tests := []struct {
		name          string
		ref           status.Ref
		wantLabel     string
		wantCompleted bool
	}{
		{"unassigned", status.Unassigned(), status.DefaultClientLabel, false},
		{"hidden falls back to visible predecessor", status.Assigned(cooking), "Принят", false},
		{"final sets completion", status.Assigned(delivered), "Доставлен", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.svc.CreateOrderAsManager(ctx, managerCommand(tt.ref))
			if err != nil {
				t.Fatalf("CreateOrderAsManager() error = %v", err)
			}
			detail, err := f.svc.GetOrder(ctx, result.OrderID)
			if err != nil {
				t.Fatalf("GetOrder() error = %v", err)
			}
			if detail.ClientStatus != tt.wantLabel {
				t.Errorf("ClientStatus = %q, want %q", detail.ClientStatus, tt.wantLabel)
			}
			if (detail.OrderCompletionTime != nil) != tt.wantCompleted {
				t.Errorf("completed = %v, want %v", detail.OrderCompletionTime != nil, tt.wantCompleted)
			}
			if detail.AccountID != nil {
				t.Errorf("manager orders carry no account")
			}
		})
	}

	f.svc.Wait()
	if len(f.notifier.received()) != 0 {
		t.Errorf("manager entry must not push notices")
	}
	for _, event := range f.store.Outbox() {
		if placed := event.(*order.OrderPlacedEvent); placed.Channel() != order.ChannelManager {
			t.Errorf("channel = %q", placed.Channel())
		}
	}
}

func TestCreateOrderAsManagerUnknownStatus(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateOrderAsManager(context.Background(), managerCommand(status.Assigned(999)))
		if !errors.Is(err, status.ErrUnknownStatus) {
			t.Fatalf("error = %v, want unknown status", err)
		}
		if orders, addresses, _ := f.store.Counts(); orders != 0 || addresses != 0 {
			t.Errorf("rejected create must not write")
		}
	})

	t.Run("lenient", func(t *testing.T) {
		f := newFixture(t, WithLenientCreateStatus(true))
		result, err := f.svc.CreateOrderAsManager(context.Background(), managerCommand(status.Assigned(999)))
		if err != nil {
			t.Fatalf("CreateOrderAsManager() error = %v", err)
		}
		detail, _ := f.svc.GetOrder(context.Background(), result.OrderID)
		if detail.OrderStatusID.Ref.IsAssigned() || detail.ClientStatus != status.DefaultClientLabel {
			t.Errorf("unknown status must be coerced to unassigned, got %+v", detail.OrderStatusID)
		}
		if f.logs.FilterMessage("Unknown status coerced to unassigned").Len() != 1 {
			t.Errorf("expected a coercion warning")
		}
	})
}

func TestUpdateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accepted := f.store.AddStatus("Принят", 1, status.FinalNone, true)
	delivered := f.store.AddStatus("Доставлен", 2, status.FinalPositive, true)

	account := int64(42)
	comment := "без лука"
	cmd := clientCommand(&account)
	cmd.CommentFromClient = &comment
	placed, err := f.svc.PlaceOrderAsClient(ctx, cmd)
	if err != nil {
		t.Fatalf("PlaceOrderAsClient() error = %v", err)
	}
	f.svc.Wait()

	update := managerCommand(status.Assigned(delivered))
	update.Items = update.Items[:1]
	update.Address.Street = "Арбат"
	detail, err := f.svc.UpdateOrder(ctx, placed.OrderID, update)
	if err != nil {
		t.Fatalf("UpdateOrder() error = %v", err)
	}
	if detail.OrderNumber != placed.OrderNumber {
		t.Errorf("order number changed to %q", detail.OrderNumber)
	}
	if detail.AccountID == nil || *detail.AccountID != account {
		t.Errorf("ownership must be preserved")
	}
	if detail.CommentFromClient == nil || *detail.CommentFromClient != comment {
		t.Errorf("client comment must be preserved")
	}
	if len(detail.Items) != 1 || detail.Address.Street != "Арбат" {
		t.Errorf("fields not replaced: %+v", detail)
	}
	if detail.OrderCompletionTime == nil || detail.ClientStatus != "Доставлен" {
		t.Errorf("final status must complete the order, got %+v", detail)
	}

	// 取消最终状态后完成时间清空
	detail, err = f.svc.UpdateOrder(ctx, placed.OrderID, managerCommand(status.Assigned(accepted)))
	if err != nil {
		t.Fatalf("UpdateOrder() error = %v", err)
	}
	if detail.OrderCompletionTime != nil {
		t.Errorf("leaving a final status must clear completion")
	}
	if orders, addresses, _ := f.store.Counts(); orders != 1 || addresses != 1 {
		t.Errorf("update must not create rows: orders=%d addresses=%d", orders, addresses)
	}
}

func TestUpdateOrderRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	placed, err := f.svc.PlaceOrderAsClient(ctx, clientCommand(nil))
	if err != nil {
		t.Fatalf("PlaceOrderAsClient() error = %v", err)
	}
	f.svc.Wait()

	if _, err := f.svc.UpdateOrder(ctx, placed.OrderID, managerCommand(status.Assigned(77))); !errors.Is(err, status.ErrUnknownStatus) {
		t.Errorf("unknown status error = %v", err)
	}
	if _, err := f.svc.UpdateOrder(ctx, 9999, managerCommand(status.Unassigned())); !errors.Is(err, order.ErrOrderNotFound) {
		t.Errorf("missing order error = %v", err)
	}

	f.store.FailOn("ReplaceLineItems", errors.New("disk full"))
	update := managerCommand(status.Unassigned())
	update.Address.Street = "Арбат"
	if _, err := f.svc.UpdateOrder(ctx, placed.OrderID, update); err == nil {
		t.Fatal("expected failure")
	}
	f.store.FailOn("ReplaceLineItems", nil)

	detail, _ := f.svc.GetOrder(ctx, placed.OrderID)
	if detail.Address.Street != "Тверская" || len(detail.Items) != 2 {
		t.Errorf("failed update must roll back, got %+v", detail)
	}
}

func TestBulkChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	delivered := f.store.AddStatus("Доставлен", 5, status.FinalPositive, true)
	cooking := f.store.AddStatus("Готовится", 2, status.FinalNone, true)

	first := f.store.AddOrderWithStatus(cooking)
	second := f.store.AddOrderWithStatus(cooking)

	result, err := f.svc.BulkChangeStatus(ctx, BulkStatusCommand{
		IDs:           []int64{first, second, 999, first},
		OrderStatusID: StatusID{Ref: status.Assigned(delivered)},
	})
	if err != nil {
		t.Fatalf("BulkChangeStatus() error = %v", err)
	}
	if result.Updated != 2 || len(result.Warnings) != 1 {
		t.Errorf("result = %+v, want 2 updated with one warning", result)
	}

	detail, _ := f.svc.GetOrder(ctx, first)
	if detail.OrderCompletionTime == nil || detail.ClientStatus != "Доставлен" {
		t.Errorf("bulk final status must complete, got %+v", detail)
	}

	if _, err := f.svc.BulkChangeStatus(ctx, BulkStatusCommand{IDs: []int64{first}, OrderStatusID: StatusID{Ref: status.Assigned(404)}}); !errors.Is(err, status.ErrUnknownStatus) {
		t.Errorf("unknown status error = %v", err)
	}
	if _, err := f.svc.BulkChangeStatus(ctx, BulkStatusCommand{}); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("empty id list error = %v", err)
	}
}

func TestBulkChangePaymentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.store.AddStatus("Принят", 1, status.FinalNone, true)
	id := f.store.AddOrderWithStatus(st)

	paid := true
	result, err := f.svc.BulkChangePaymentStatus(ctx, BulkPaymentCommand{IDs: []int64{id}, IsPaid: &paid})
	if err != nil || result.Updated != 1 || len(result.Warnings) != 0 {
		t.Fatalf("BulkChangePaymentStatus() = %+v, %v", result, err)
	}
	detail, _ := f.svc.GetOrder(ctx, id)
	if !detail.IsPaid {
		t.Errorf("order must be paid")
	}

	if _, err := f.svc.BulkChangePaymentStatus(ctx, BulkPaymentCommand{IDs: []int64{id}}); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("missing isPaid error = %v", err)
	}
}

func TestDeleteOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	placed, err := f.svc.PlaceOrderAsClient(ctx, clientCommand(nil))
	if err != nil {
		t.Fatalf("PlaceOrderAsClient() error = %v", err)
	}
	f.svc.Wait()

	if _, err := f.svc.DeleteOrders(ctx, nil); !errors.Is(err, order.ErrEmptyIDList) {
		t.Errorf("empty list error = %v", err)
	}

	result, err := f.svc.DeleteOrders(ctx, []int64{placed.OrderID, 31337})
	if err != nil {
		t.Fatalf("DeleteOrders() error = %v", err)
	}
	if result.DeletedOrders != 1 || result.DeletedAddresses != 1 || len(result.Warnings) != 1 {
		t.Errorf("result = %+v", result)
	}
	if orders, addresses, lineItems := f.store.Counts(); orders+addresses+lineItems != 0 {
		t.Errorf("rows left after delete: %d %d %d", orders, addresses, lineItems)
	}
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.store.AddStatus("Принят", 1, status.FinalNone, true)
	for i := 0; i < 3; i++ {
		f.store.AddOrderWithStatus(st)
	}
	if _, err := f.svc.PlaceOrderAsClient(ctx, clientCommand(int64Ptr(9))); err != nil {
		t.Fatalf("PlaceOrderAsClient() error = %v", err)
	}
	f.svc.Wait()

	list, err := f.svc.ListOrders(ctx, ListOrdersQuery{})
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if list.Total != 4 || list.CurrentPage != DefaultPage || list.Limit != DefaultLimit || len(list.Data) != 4 {
		t.Errorf("list = total %d page %d limit %d len %d", list.Total, list.CurrentPage, list.Limit, len(list.Data))
	}

	unassigned, err := f.svc.ListOrders(ctx, ListOrdersQuery{Statuses: []status.Ref{status.Unassigned()}})
	if err != nil {
		t.Fatalf("ListOrders(unassigned) error = %v", err)
	}
	if unassigned.Total != 1 {
		t.Errorf("unassigned total = %d, want 1", unassigned.Total)
	}

	from, to := fixedNow, fixedNow.Add(-time.Hour)
	if _, err := f.svc.ListOrders(ctx, ListOrdersQuery{PlacedFrom: &from, PlacedTo: &to}); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("inverted range error = %v", err)
	}
	if _, err := f.svc.ListOrders(ctx, ListOrdersQuery{Limit: 500}); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("oversized limit error = %v", err)
	}

	mine, err := f.svc.ListOrdersByAccount(ctx, 9)
	if err != nil {
		t.Fatalf("ListOrdersByAccount() error = %v", err)
	}
	if len(mine) != 1 || mine[0].AccountID == nil || *mine[0].AccountID != 9 {
		t.Errorf("account orders = %+v", mine)
	}
}

func TestPlacementLogCarriesRequestID(t *testing.T) {
	f := newFixture(t)
	ctx := persistence.ContextWithRequestID(context.Background(), "req-checkout-1")

	if _, err := f.svc.PlaceOrderAsClient(ctx, clientCommand(nil)); err != nil {
		t.Fatalf("PlaceOrderAsClient() error = %v", err)
	}
	f.svc.Wait()

	entries := f.logs.FilterMessage("Order placed").All()
	if len(entries) != 1 {
		t.Fatalf("placement log entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-checkout-1" {
		t.Errorf("request_id = %v, want req-checkout-1", got)
	}
}
