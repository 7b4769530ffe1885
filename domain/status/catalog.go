package status

import (
	"context"
	"sort"
)

// Catalog is an immutable snapshot of the status list, sorted once by
// descending sequence number. Take a fresh snapshot per transaction.
type Catalog struct {
	desc []*OrderStatus
	byID map[int64]*OrderStatus
}

// NewCatalog copies and sorts the given statuses.
func NewCatalog(statuses []*OrderStatus) *Catalog {
	desc := make([]*OrderStatus, len(statuses))
	copy(desc, statuses)
	sort.SliceStable(desc, func(i, j int) bool {
		if desc[i].sequence != desc[j].sequence {
			return desc[i].sequence > desc[j].sequence
		}
		return desc[i].id > desc[j].id
	})

	byID := make(map[int64]*OrderStatus, len(desc))
	for _, s := range desc {
		byID[s.id] = s
	}
	return &Catalog{desc: desc, byID: byID}
}

// LoadCatalog reads the current catalog through the provider.
func LoadCatalog(ctx context.Context, provider CatalogProvider) (*Catalog, error) {
	statuses, err := provider.ListDescendingBySequence(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalog(statuses), nil
}

// Descending returns the snapshot, highest sequence first.
func (c *Catalog) Descending() []*OrderStatus {
	out := make([]*OrderStatus, len(c.desc))
	copy(out, c.desc)
	return out
}

// Lookup finds a status by id.
func (c *Catalog) Lookup(id int64) (*OrderStatus, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Resolution is the outcome of resolving a status transition.
type Resolution struct {
	Status      Ref
	ClientLabel string
	// Final: completion timestamp must be set; otherwise it must be cleared.
	Final bool
}

// Resolve computes the client-visible label and completion decision for ref.
// An assigned id missing from the catalog is rejected.
func (c *Catalog) Resolve(ref Ref) (Resolution, error) {
	id, assigned := ref.ID()
	if !assigned {
		return UnassignedResolution(), nil
	}

	target, ok := c.byID[id]
	if !ok {
		return Resolution{}, NewUnknownStatusError(id)
	}

	return Resolution{
		Status:      ref,
		ClientLabel: c.labelFor(target),
		Final:       target.finalOutcome.IsFinal(),
	}, nil
}

// ResolveLenient coerces unknown ids to Unassigned instead of failing.
func (c *Catalog) ResolveLenient(ref Ref) Resolution {
	res, err := c.Resolve(ref)
	if err != nil {
		return UnassignedResolution()
	}
	return res
}

// UnassignedResolution needs no catalog: default label, not final.
func UnassignedResolution() Resolution {
	return Resolution{Status: Unassigned(), ClientLabel: DefaultClientLabel}
}

func (c *Catalog) labelFor(target *OrderStatus) string {
	if target.clientVisible {
		return target.name
	}
	for _, s := range c.desc {
		if s.sequence < target.sequence && s.clientVisible {
			return s.name
		}
	}
	return DefaultClientLabel
}

// PositiveFinal returns the single final-positive status, if any.
func (c *Catalog) PositiveFinal() (*OrderStatus, bool) {
	for _, s := range c.desc {
		if s.finalOutcome == FinalPositive {
			return s, true
		}
	}
	return nil, false
}
