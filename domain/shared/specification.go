package shared

import (
	"context"
)

// Specification encapsulates a query constraint.
// IsSatisfiedBy is used for in-memory filtering (e.g., in mock repositories);
// persistent repositories translate the concrete type into a query instead.
type Specification interface {
	IsSatisfiedBy(ctx context.Context, entity interface{}) bool
}

// AndSpecification represents the logical AND of a list of specifications
type AndSpecification struct {
	Specs []Specification
}

// IsSatisfiedBy returns true if every specification is satisfied
func (spec AndSpecification) IsSatisfiedBy(ctx context.Context, entity interface{}) bool {
	for _, s := range spec.Specs {
		if !s.IsSatisfiedBy(ctx, entity) {
			return false
		}
	}
	return true
}

// And combines specifications, skipping nil entries
func And(specs ...Specification) Specification {
	filtered := make([]Specification, 0, len(specs))
	for _, s := range specs {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return AndSpecification{Specs: filtered}
}
