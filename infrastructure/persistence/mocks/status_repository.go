package mocks

import (
	"context"
	"sort"

	"orderflow/domain/status"
	"orderflow/infrastructure/persistence/gormdb/po"
)

type StatusRepository struct {
	s *Store
}

func (s *Store) Statuses() *StatusRepository { return &StatusRepository{s: s} }

// AddStatus seeds a catalog entry and returns its id
func (s *Store) AddStatus(name string, sequence int, outcome status.FinalOutcome, visible bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := po.FromStatusDomain(status.Rebuild(0, name, sequence, outcome, visible))
	p.ID = s.id()
	s.statuses[p.ID] = *p
	return p.ID
}

func (r *StatusRepository) ListDescendingBySequence(ctx context.Context) ([]*status.OrderStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("ListDescendingBySequence"); err != nil {
		return nil, err
	}
	list := r.s.sortedStatuses()
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

func (r *StatusRepository) ListAscending(ctx context.Context) ([]*status.OrderStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sortedStatuses(), nil
}

// sortedStatuses ascending by sequence then id; must be called with mu held
func (s *Store) sortedStatuses() []*status.OrderStatus {
	pos := make([]po.OrderStatusPO, 0, len(s.statuses))
	for _, p := range s.statuses {
		pos = append(pos, p)
	}
	sort.Slice(pos, func(i, j int) bool {
		if pos[i].SequenceNumber != pos[j].SequenceNumber {
			return pos[i].SequenceNumber < pos[j].SequenceNumber
		}
		return pos[i].ID < pos[j].ID
	})
	out := make([]*status.OrderStatus, len(pos))
	for i := range pos {
		out[i] = pos[i].ToDomain()
	}
	return out
}

func (r *StatusRepository) FindByID(ctx context.Context, id int64) (*status.OrderStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.statuses[id]
	if !ok {
		return nil, status.NewStatusNotFoundError(id)
	}
	return p.ToDomain(), nil
}

func (r *StatusRepository) MaxSequence(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := 0
	for _, p := range r.s.statuses {
		if p.SequenceNumber > max {
			max = p.SequenceNumber
		}
	}
	return max, nil
}

func (r *StatusRepository) HasPositiveFinal(ctx context.Context, excludeID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.statuses {
		if id == excludeID {
			continue
		}
		if p.IsFinalResultPositive != nil && *p.IsFinalResultPositive {
			return true, nil
		}
	}
	return false, nil
}

func (r *StatusRepository) Create(ctx context.Context, st *status.OrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreateStatus"); err != nil {
		return err
	}
	p := po.FromStatusDomain(st)
	p.ID = r.s.id()
	r.s.statuses[p.ID] = *p
	st.AssignID(p.ID)
	return nil
}

func (r *StatusRepository) Update(ctx context.Context, st *status.OrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.statuses[st.ID()]; !ok {
		return status.NewStatusNotFoundError(st.ID())
	}
	r.s.statuses[st.ID()] = *po.FromStatusDomain(st)
	return nil
}

func (r *StatusRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.statuses[id]; !ok {
		return status.NewStatusNotFoundError(id)
	}
	for _, o := range r.s.orders {
		if o.OrderStatusID != nil && *o.OrderStatusID == id {
			return status.NewStatusInUseError(id)
		}
	}
	delete(r.s.statuses, id)
	return nil
}

func (r *StatusRepository) UpdateSequences(ctx context.Context, updates []status.SequenceUpdate) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("UpdateSequences"); err != nil {
		return 0, err
	}
	var changed int64
	for _, u := range updates {
		p, ok := r.s.statuses[u.ID]
		if !ok {
			continue
		}
		p.SequenceNumber = u.Sequence
		r.s.statuses[u.ID] = p
		changed++
	}
	return changed, nil
}

var _ status.Repository = (*StatusRepository)(nil)
