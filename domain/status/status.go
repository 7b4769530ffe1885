/*
Package status Order status catalog and client-visible status resolution

The catalog is an administrator-defined, totally ordered list of fulfillment
steps. Orders reference a step through Ref, an explicit Unassigned | Assigned(id)
variant; the client-visible label stored on the order is always derived from
the referenced step through Catalog.Resolve.
*/
package status

import (
	"strconv"
	"strings"
)

// DefaultClientLabel is shown to the customer while no visible step applies.
const DefaultClientLabel = "Создан"

// FinalOutcome classifies a status as non-final, final-positive or final-other.
type FinalOutcome int

const (
	FinalNone FinalOutcome = iota
	FinalPositive
	FinalNegative
)

// IsFinal reports whether the outcome marks the end of the pipeline.
func (f FinalOutcome) IsFinal() bool {
	return f == FinalPositive || f == FinalNegative
}

// FinalOutcomeFromFlag maps the tri-state persisted flag (nil, true, false).
func FinalOutcomeFromFlag(flag *bool) FinalOutcome {
	switch {
	case flag == nil:
		return FinalNone
	case *flag:
		return FinalPositive
	default:
		return FinalNegative
	}
}

// Flag is the inverse of FinalOutcomeFromFlag.
func (f FinalOutcome) Flag() *bool {
	switch f {
	case FinalPositive:
		v := true
		return &v
	case FinalNegative:
		v := false
		return &v
	default:
		return nil
	}
}

func (f FinalOutcome) String() string {
	switch f {
	case FinalPositive:
		return "positive"
	case FinalNegative:
		return "negative"
	default:
		return "none"
	}
}

// OrderStatus is one step of the fulfillment pipeline.
type OrderStatus struct {
	id            int64
	name          string
	sequence      int
	finalOutcome  FinalOutcome
	clientVisible bool
}

// New validates and creates a status that has not been persisted yet.
func New(name string, sequence int, outcome FinalOutcome, clientVisible bool) (*OrderStatus, error) {
	s := &OrderStatus{}
	if err := s.Change(name, sequence, outcome, clientVisible); err != nil {
		return nil, err
	}
	return s, nil
}

// Rebuild restores a status from storage without validation.
func Rebuild(id int64, name string, sequence int, outcome FinalOutcome, clientVisible bool) *OrderStatus {
	return &OrderStatus{
		id:            id,
		name:          name,
		sequence:      sequence,
		finalOutcome:  outcome,
		clientVisible: clientVisible,
	}
}

// Change replaces every mutable attribute at once.
func (s *OrderStatus) Change(name string, sequence int, outcome FinalOutcome, clientVisible bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewInvalidStatusError("name", "status name is required")
	}
	if sequence < 0 {
		return NewInvalidStatusError("sequenceNumber", "sequence number must not be negative")
	}
	if outcome < FinalNone || outcome > FinalNegative {
		return NewInvalidStatusError("isFinalResultPositive", "unknown final outcome")
	}
	s.name = name
	s.sequence = sequence
	s.finalOutcome = outcome
	s.clientVisible = clientVisible
	return nil
}

// AssignID is called by the repository after insert.
func (s *OrderStatus) AssignID(id int64) { s.id = id }

func (s *OrderStatus) ID() int64                  { return s.id }
func (s *OrderStatus) Name() string               { return s.name }
func (s *OrderStatus) Sequence() int              { return s.sequence }
func (s *OrderStatus) FinalOutcome() FinalOutcome { return s.finalOutcome }
func (s *OrderStatus) ClientVisible() bool        { return s.clientVisible }

// Ref is the status reference held by an order.
// The zero value is Unassigned.
type Ref struct {
	id       int64
	assigned bool
}

// Unassigned is the "no status chosen yet" state.
func Unassigned() Ref { return Ref{} }

// Assigned references a catalog entry.
func Assigned(id int64) Ref { return Ref{id: id, assigned: true} }

// RefFromPtr converts a nullable column value.
func RefFromPtr(id *int64) Ref {
	if id == nil {
		return Unassigned()
	}
	return Assigned(*id)
}

// ParseRef converts the external sentinel encodings used by clients:
// "", "null" and "0" mean Unassigned.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" || raw == "0" {
		return Unassigned(), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return Ref{}, NewInvalidStatusError("orderStatusId", "malformed status id: "+raw)
	}
	return Assigned(id), nil
}

func (r Ref) IsAssigned() bool { return r.assigned }

// ID returns the referenced id and whether one is assigned.
func (r Ref) ID() (int64, bool) { return r.id, r.assigned }

// Ptr is the nullable column value.
func (r Ref) Ptr() *int64 {
	if !r.assigned {
		return nil
	}
	id := r.id
	return &id
}

func (r Ref) String() string {
	if !r.assigned {
		return "unassigned"
	}
	return strconv.FormatInt(r.id, 10)
}
