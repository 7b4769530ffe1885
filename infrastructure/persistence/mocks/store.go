/*
Package mocks 内存实现的存储层，供应用层与接口层测试使用

Store 同时实现订单、状态目录、账户与购物车仓储；UnitOfWork 在执行前
对整个 Store 做快照，业务函数返回错误时恢复快照，以模拟事务回滚。
*/
package mocks

import (
	"sync"
	"time"

	"orderflow/domain/shared"
	"orderflow/infrastructure/persistence/gormdb/po"
)

// Store in-memory tables keyed by id
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	addresses map[int64]po.DeliveryAddressPO
	orders    map[int64]po.OrderPO
	items     map[int64][]po.CompositionOrderPO
	statuses  map[int64]po.OrderStatusPO
	accounts  map[int64]po.AccountRow
	carts     map[int64][]po.ShoppingCartPO
	outbox    []shared.DomainEvent

	nextID   int64
	failures map[string]error
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		addresses: make(map[int64]po.DeliveryAddressPO),
		orders:    make(map[int64]po.OrderPO),
		items:     make(map[int64][]po.CompositionOrderPO),
		statuses:  make(map[int64]po.OrderStatusPO),
		accounts:  make(map[int64]po.AccountRow),
		carts:     make(map[int64][]po.ShoppingCartPO),
		failures:  make(map[string]error),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock fixes the placement clock
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// FailOn makes the named repository operation return err until cleared with nil
func (s *Store) FailOn(operation string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, operation)
		return
	}
	s.failures[operation] = err
}

// fail must be called with mu held
func (s *Store) fail(operation string) error {
	return s.failures[operation]
}

// id must be called with mu held
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

type snapshot struct {
	addresses map[int64]po.DeliveryAddressPO
	orders    map[int64]po.OrderPO
	items     map[int64][]po.CompositionOrderPO
	statuses  map[int64]po.OrderStatusPO
	accounts  map[int64]po.AccountRow
	carts     map[int64][]po.ShoppingCartPO
	outbox    []shared.DomainEvent
	nextID    int64
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		addresses: copyMap(s.addresses),
		orders:    copyMap(s.orders),
		items:     copySliceMap(s.items),
		statuses:  copyMap(s.statuses),
		accounts:  copyMap(s.accounts),
		carts:     copySliceMap(s.carts),
		outbox:    append([]shared.DomainEvent(nil), s.outbox...),
		nextID:    s.nextID,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses = snap.addresses
	s.orders = snap.orders
	s.items = snap.items
	s.statuses = snap.statuses
	s.accounts = snap.accounts
	s.carts = snap.carts
	s.outbox = snap.outbox
	s.nextID = snap.nextID
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copySliceMap[K comparable, V any](m map[K][]V) map[K][]V {
	out := make(map[K][]V, len(m))
	for k, v := range m {
		out[k] = append([]V(nil), v...)
	}
	return out
}

// Outbox returns the events committed so far
func (s *Store) Outbox() []shared.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shared.DomainEvent(nil), s.outbox...)
}

// Counts returns table sizes, for atomicity assertions
func (s *Store) Counts() (orders, addresses, items int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range s.items {
		items += len(list)
	}
	return len(s.orders), len(s.addresses), items
}
