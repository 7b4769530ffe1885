package mocks

import (
	"context"

	"orderflow/domain/cart"
	"orderflow/infrastructure/persistence/gormdb/po"
)

type CartRepository struct {
	s *Store
}

func (s *Store) Carts() *CartRepository { return &CartRepository{s: s} }

// AddCartItem seeds one cart entry
func (s *Store) AddCartItem(accountID, dishID int64, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[accountID] = append(s.carts[accountID], po.ShoppingCartPO{
		ID: s.id(), AccountID: accountID, DishID: dishID, Quantity: quantity,
	})
}

// CartSize counts the entries of one account
func (s *Store) CartSize(accountID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts[accountID])
}

func (r *CartRepository) ClearByAccount(ctx context.Context, accountID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("ClearCart"); err != nil {
		return 0, err
	}
	n := int64(len(r.s.carts[accountID]))
	delete(r.s.carts, accountID)
	return n, nil
}

var _ cart.Repository = (*CartRepository)(nil)
