package gormdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"orderflow/domain/order"
	"orderflow/domain/shared"
	"orderflow/domain/status"
	"orderflow/infrastructure/persistence/gormdb/po"
	"orderflow/infrastructure/persistence/retry"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func TestConcurrentPlacementsGetDistinctNumbers(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db)
	factory := NewUnitOfWorkFactory(db, retry.Config{})

	const n = 20
	var mu sync.Mutex
	placed := make(map[int64]string, n)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		house := strconv.Itoa(i + 1)
		g.Go(func() error {
			return factory.New().Execute(ctx, func(ctx context.Context) error {
				o, err := placeOrder(ctx, repo, testDraft(house), status.UnassignedResolution())
				if err != nil {
					return err
				}
				mu.Lock()
				placed[o.OrderID()] = o.Number()
				mu.Unlock()
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent placement: %v", err)
	}

	if len(placed) != n {
		t.Fatalf("distinct ids = %d, want %d", len(placed), n)
	}
	seen := make(map[string]bool, n)
	for id, number := range placed {
		if number != order.NumberPrefix+strconv.FormatInt(id, 10) {
			t.Errorf("order %d number = %q", id, number)
		}
		if seen[number] {
			t.Errorf("number %q assigned twice", number)
		}
		seen[number] = true
	}

	var stored []po.OrderPO
	if err := db.Find(&stored).Error; err != nil {
		t.Fatalf("read orders: %v", err)
	}
	for _, row := range stored {
		if row.OrderNumber == nil || *row.OrderNumber != placed[row.ID] {
			t.Errorf("stored number for %d = %v, want %q", row.ID, row.OrderNumber, placed[row.ID])
		}
	}
}

func TestFailedPlacementRollsBack(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db)

	missing := status.Resolution{Status: status.Assigned(404), ClientLabel: status.DefaultClientLabel}
	err := NewUnitOfWorkFactory(db, retry.Config{}).New().Execute(context.Background(), func(ctx context.Context) error {
		_, err := placeOrder(ctx, repo, testDraft("1"), missing)
		return err
	})
	if !errors.Is(err, shared.ErrConflict) {
		t.Fatalf("placement with a missing status = %v, want conflict", err)
	}

	for _, model := range []interface{}{&po.DeliveryAddressPO{}, &po.OrderPO{}, &po.CompositionOrderPO{}} {
		var count int64
		if err := db.Model(model).Count(&count).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 0 {
			t.Errorf("%T rows = %d after rollback", model, count)
		}
	}
}

func TestOrderRoundTrip(t *testing.T) {
	db := openTestDB(t)
	placedAt := time.Date(2026, 6, 2, 18, 45, 0, 0, time.UTC)
	repo := NewOrderRepository(db).WithClock(func() time.Time { return placedAt })
	ctx := context.Background()

	o, err := placeOrder(ctx, repo, testDraft("12"), status.UnassignedResolution())
	if err != nil {
		t.Fatalf("placeOrder() error = %v", err)
	}

	got, err := repo.FindByID(ctx, o.OrderID())
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Number() != o.Number() || !got.PlacedAt().Equal(placedAt) {
		t.Errorf("header = %s at %v", got.Number(), got.PlacedAt())
	}
	if got.Status().IsAssigned() || got.ClientLabel() != status.DefaultClientLabel {
		t.Errorf("status = %v label %q", got.Status(), got.ClientLabel())
	}
	if got.Address().House != "12" || got.Address().Latitude != 55.79 {
		t.Errorf("address = %+v", got.Address())
	}
	items := got.Items()
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if !got.GoodsCost().Equal(o.GoodsCost()) {
		t.Errorf("goods cost = %s", got.GoodsCost())
	}

	if _, err := repo.FindByID(ctx, 999); !errors.Is(err, order.ErrOrderNotFound) {
		t.Errorf("FindByID(999) = %v, want not found", err)
	}
}

func TestBulkSetStatusCompletionTime(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	cooking := seedStatus(t, db, "Готовится", 1, status.FinalNone, true)
	delivered := seedStatus(t, db, "Доставлен", 2, status.FinalPositive, true)
	catalog := status.NewCatalog([]*status.OrderStatus{cooking, delivered})

	var ids []int64
	for i := 0; i < 2; i++ {
		o, err := placeOrder(ctx, repo, testDraft(fmt.Sprint(i+1)), status.UnassignedResolution())
		if err != nil {
			t.Fatalf("placeOrder() error = %v", err)
		}
		ids = append(ids, o.OrderID())
	}

	final, err := catalog.Resolve(status.Assigned(delivered.ID()))
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	first := time.Date(2026, 6, 2, 19, 0, 0, 0, time.UTC)
	if n, err := repo.BulkSetStatus(ctx, ids, final, first); err != nil || n != 2 {
		t.Fatalf("BulkSetStatus(final) = %d, %v", n, err)
	}

	later := first.Add(time.Hour)
	if _, err := repo.BulkSetStatus(ctx, ids, final, later); err != nil {
		t.Fatalf("BulkSetStatus(final again) error = %v", err)
	}
	for _, id := range ids {
		got, err := repo.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("FindByID(%d): %v", id, err)
		}
		if got.CompletedAt() == nil || !got.CompletedAt().Equal(first) {
			t.Errorf("order %d completed at %v, want %v", id, got.CompletedAt(), first)
		}
		if got.ClientLabel() != "Доставлен" {
			t.Errorf("order %d label = %q", id, got.ClientLabel())
		}
	}

	open, err := catalog.Resolve(status.Assigned(cooking.ID()))
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	if _, err := repo.BulkSetStatus(ctx, ids[:1], open, later); err != nil {
		t.Fatalf("BulkSetStatus(non-final) error = %v", err)
	}
	reopened, _ := repo.FindByID(ctx, ids[0])
	if reopened.CompletedAt() != nil {
		t.Errorf("non-final status must clear completion, got %v", reopened.CompletedAt())
	}
	untouched, _ := repo.FindByID(ctx, ids[1])
	if untouched.CompletedAt() == nil || !untouched.CompletedAt().Equal(first) {
		t.Errorf("order outside the id list changed: %v", untouched.CompletedAt())
	}
}

func TestDeleteRemovesOwnedRows(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	keep, err := placeOrder(ctx, repo, testDraft("1"), status.UnassignedResolution())
	if err != nil {
		t.Fatalf("placeOrder() error = %v", err)
	}
	drop, err := placeOrder(ctx, repo, testDraft("2"), status.UnassignedResolution())
	if err != nil {
		t.Fatalf("placeOrder() error = %v", err)
	}

	res, err := repo.Delete(ctx, []int64{drop.OrderID(), 999})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if res.Orders != 1 || res.Addresses != 1 {
		t.Errorf("Delete() = %+v, want 1 order and 1 address", res)
	}

	var items int64
	db.Model(&po.CompositionOrderPO{}).Where("order_id = ?", drop.OrderID()).Count(&items)
	if items != 0 {
		t.Errorf("line items of deleted order = %d", items)
	}
	if _, err := repo.FindByID(ctx, keep.OrderID()); err != nil {
		t.Errorf("unrelated order deleted: %v", err)
	}
}

func TestForeignKeys(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	cooking := seedStatus(t, db, "Готовится", 1, status.FinalNone, true)
	res, err := status.NewCatalog([]*status.OrderStatus{cooking}).Resolve(status.Assigned(cooking.ID()))
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	o, err := placeOrder(ctx, repo, testDraft("5"), res)
	if err != nil {
		t.Fatalf("placeOrder() error = %v", err)
	}

	t.Run("referenced status", func(t *testing.T) {
		err := db.Delete(&po.OrderStatusPO{}, cooking.ID()).Error
		if !errors.Is(err, gorm.ErrForeignKeyViolated) {
			t.Fatalf("raw delete of a referenced status = %v, want foreign key violation", err)
		}
		if err := NewStatusRepository(db).Delete(ctx, cooking.ID()); !errors.Is(err, status.ErrStatusInUse) {
			t.Errorf("StatusRepository.Delete() = %v, want in use", err)
		}
	})

	t.Run("referenced address", func(t *testing.T) {
		err := db.Delete(&po.DeliveryAddressPO{}, o.Address().ID).Error
		if !errors.Is(err, gorm.ErrForeignKeyViolated) {
			t.Fatalf("deleting an address owned by an order = %v, want foreign key violation", err)
		}
	})

	t.Run("line items cascade", func(t *testing.T) {
		if err := db.Delete(&po.OrderPO{}, o.OrderID()).Error; err != nil {
			t.Fatalf("delete order row: %v", err)
		}
		var items int64
		db.Model(&po.CompositionOrderPO{}).Where("order_id = ?", o.OrderID()).Count(&items)
		if items != 0 {
			t.Errorf("line items survived their order: %d", items)
		}
	})

	t.Run("missing order for line items", func(t *testing.T) {
		_, err := repo.ReplaceLineItems(ctx, 4242, testDraft("6").Items)
		if !errors.Is(err, shared.ErrConflict) {
			t.Errorf("line items for a missing order = %v, want conflict", err)
		}
	})

	t.Run("cart rows cascade with account", func(t *testing.T) {
		account := &po.AccountPO{Login: "client", PasswordHash: "x", RoleID: 1, RegisteredAt: time.Now().UTC()}
		role := &po.RolePO{ID: 1, Name: "client"}
		if err := db.Create(role).Error; err != nil {
			t.Fatalf("create role: %v", err)
		}
		if err := db.Create(account).Error; err != nil {
			t.Fatalf("create account: %v", err)
		}
		if err := db.Omit("Account").Create(&po.ShoppingCartPO{AccountID: account.ID, DishID: 4, Quantity: 1}).Error; err != nil {
			t.Fatalf("add cart row: %v", err)
		}
		if err := db.Delete(&po.AccountPO{}, account.ID).Error; err != nil {
			t.Fatalf("delete account: %v", err)
		}
		var rows int64
		db.Model(&po.ShoppingCartPO{}).Where("account_id = ?", account.ID).Count(&rows)
		if rows != 0 {
			t.Errorf("cart rows survived their account: %d", rows)
		}
	})
}
