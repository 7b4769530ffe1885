package gormdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"orderflow/domain/order"
	"orderflow/domain/status"
	"orderflow/pkg/logger"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openTestDB 每个测试一个独立的 SQLite 文件库，开启外键并完成建表
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "orderflow.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.NewGormLogger(gormlogger.Silent, 0).WithLogger(zaptest.NewLogger(t)),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	// 单连接：事务之间串行，避免 SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	return db
}

func seedStatus(t *testing.T, db *gorm.DB, name string, sequence int, outcome status.FinalOutcome, visible bool) *status.OrderStatus {
	t.Helper()
	s, err := status.New(name, sequence, outcome, visible)
	if err != nil {
		t.Fatalf("status.New(%q): %v", name, err)
	}
	if err := NewStatusRepository(db).Create(context.Background(), s); err != nil {
		t.Fatalf("create status %q: %v", name, err)
	}
	return s
}

func testDraft(house string) order.Draft {
	return order.Draft{
		Address: order.Address{City: "Казань", Street: "Баумана", House: house, Latitude: 55.79, Longitude: 49.12},
		Items: []order.LineItem{
			{DishID: 4, Quantity: 2, UnitPrice: decimal.RequireFromString("490")},
			{DishID: 9, Quantity: 1, UnitPrice: decimal.RequireFromString("150")},
		},
		ShippingCost:  decimal.RequireFromString("200"),
		GoodsCost:     decimal.RequireFromString("1130"),
		PaymentMethod: "card",
		ClientName:    "Гость",
		ClientPhone:   "+79991112233",
	}
}

// placeOrder 与应用层相同的写入顺序：地址 -> 订单头 -> 订单号 -> 订单项
func placeOrder(ctx context.Context, repo *OrderRepository, d order.Draft, res status.Resolution) (*order.Order, error) {
	o, err := order.NewOrder(d, res, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	address := o.Address()
	addressID, err := repo.CreateAddress(ctx, &address)
	if err != nil {
		return nil, err
	}
	o.AttachAddressID(addressID)

	id, placedAt, err := repo.CreateHeader(ctx, o)
	if err != nil {
		return nil, err
	}
	o.AssignIdentity(id, placedAt)

	number, err := repo.AssignOrderNumber(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.AssignNumber(number); err != nil {
		return nil, err
	}

	items, err := repo.ReplaceLineItems(ctx, id, o.Items())
	if err != nil {
		return nil, err
	}
	o.ReplaceItems(items)
	return o, nil
}
