package order

import (
	"context"
	"strings"
	"time"

	"orderflow/domain/shared"
)

// PlacedBetweenSpecification filters by placement time; nil bounds are open.
type PlacedBetweenSpecification struct {
	From *time.Time
	To   *time.Time
}

func (spec PlacedBetweenSpecification) IsSatisfiedBy(ctx context.Context, entity interface{}) bool {
	o, ok := entity.(*Order)
	if !ok {
		return false
	}
	if spec.From != nil && o.PlacedAt().Before(*spec.From) {
		return false
	}
	if spec.To != nil && o.PlacedAt().After(*spec.To) {
		return false
	}
	return true
}

// StatusInSpecification matches any of the listed status ids, or unassigned orders
// when IncludeUnassigned is set.
type StatusInSpecification struct {
	IDs               []int64
	IncludeUnassigned bool
}

func (spec StatusInSpecification) IsSatisfiedBy(ctx context.Context, entity interface{}) bool {
	o, ok := entity.(*Order)
	if !ok {
		return false
	}
	id, assigned := o.Status().ID()
	if !assigned {
		return spec.IncludeUnassigned
	}
	for _, want := range spec.IDs {
		if want == id {
			return true
		}
	}
	return false
}

// PaidSpecification filters by the paid flag.
type PaidSpecification struct {
	Paid bool
}

func (spec PaidSpecification) IsSatisfiedBy(ctx context.Context, entity interface{}) bool {
	o, ok := entity.(*Order)
	return ok && o.Paid() == spec.Paid
}

// PaymentMethodInSpecification matches any of the listed payment methods.
type PaymentMethodInSpecification struct {
	Methods []string
}

func (spec PaymentMethodInSpecification) IsSatisfiedBy(ctx context.Context, entity interface{}) bool {
	o, ok := entity.(*Order)
	if !ok {
		return false
	}
	for _, m := range spec.Methods {
		if m == o.PaymentMethod() {
			return true
		}
	}
	return false
}

// NumberContainsSpecification is a case-insensitive substring search over the order number.
type NumberContainsSpecification struct {
	Text string
}

func (spec NumberContainsSpecification) IsSatisfiedBy(ctx context.Context, entity interface{}) bool {
	o, ok := entity.(*Order)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(o.Number()), strings.ToLower(spec.Text))
}

// ListFilter is the manager list filter as received from callers.
type ListFilter struct {
	PlacedFrom        *time.Time
	PlacedTo          *time.Time
	StatusIDs         []int64
	IncludeUnassigned bool
	Paid              *bool
	PaymentMethods    []string
	Search            string
}

// Specification composes the non-empty parts of the filter.
func (f ListFilter) Specification() shared.Specification {
	var specs []shared.Specification
	if f.PlacedFrom != nil || f.PlacedTo != nil {
		specs = append(specs, PlacedBetweenSpecification{From: f.PlacedFrom, To: f.PlacedTo})
	}
	if len(f.StatusIDs) > 0 || f.IncludeUnassigned {
		specs = append(specs, StatusInSpecification{IDs: f.StatusIDs, IncludeUnassigned: f.IncludeUnassigned})
	}
	if f.Paid != nil {
		specs = append(specs, PaidSpecification{Paid: *f.Paid})
	}
	if len(f.PaymentMethods) > 0 {
		specs = append(specs, PaymentMethodInSpecification{Methods: f.PaymentMethods})
	}
	if text := strings.TrimSpace(f.Search); text != "" {
		specs = append(specs, NumberContainsSpecification{Text: text})
	}
	return shared.And(specs...)
}
