package mocks

import (
	"context"
	"time"

	"orderflow/domain/account"
	"orderflow/infrastructure/persistence/gormdb/po"
)

type AccountRepository struct {
	s *Store
}

func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

// AddAccount seeds an account; a zero ID is replaced by a fresh one
func (s *Store) AddAccount(dto account.ReconstructionDTO) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dto.ID == 0 {
		dto.ID = s.id()
	} else if dto.ID > s.nextID {
		s.nextID = dto.ID
	}
	s.accounts[dto.ID] = po.AccountRow{
		AccountPO: po.AccountPO{
			ID:                dto.ID,
			Login:             dto.Login,
			PasswordHash:      dto.PasswordHash,
			Email:             dto.Email,
			IsEmailConfirmed:  dto.EmailConfirmed,
			RegisteredAt:      dto.RegisteredAt,
			IsOrderManagement: dto.Capabilities.OrderManagement,
			IsMessageCenter:   dto.Capabilities.MessageCenter,
			IsTerminated:      dto.Capabilities.Terminated,
		},
		RoleName: dto.Role,
	}
	return dto.ID
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*account.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("FindAccount"); err != nil {
		return nil, err
	}
	row, ok := r.s.accounts[id]
	if !ok {
		return nil, account.NewAccountNotFoundError(id)
	}
	return row.ToDomain(), nil
}

func (r *AccountRepository) FindByLogin(ctx context.Context, login string) (*account.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.accounts {
		if row.Login == login {
			return row.ToDomain(), nil
		}
	}
	return nil, account.ErrAccountNotFound
}

func (r *AccountRepository) DeleteUnconfirmedClients(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var deleted int64
	for id, row := range r.s.accounts {
		if row.RoleName == account.RoleClient && !row.IsEmailConfirmed && row.RegisteredAt.Before(cutoff) {
			delete(r.s.accounts, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ account.Repository = (*AccountRepository)(nil)
