package specification

import (
	"strings"

	"orderflow/domain/order"
	"orderflow/domain/shared"

	"gorm.io/gorm"
)

// Translator converts domain specifications to GORM queries
// DDD principle: Infrastructure layer handles framework-specific concerns
type Translator interface {
	// Translate converts a domain specification to a GORM query function
	// Returns nil if the specification type is not supported
	Translate(spec shared.Specification) func(*gorm.DB) *gorm.DB
}

// GormTranslator implements Translator for GORM
type GormTranslator struct{}

// NewGormTranslator creates a new GORM translator
func NewGormTranslator() *GormTranslator {
	return &GormTranslator{}
}

// Translate converts a domain specification to a GORM query function
func (t *GormTranslator) Translate(spec shared.Specification) func(*gorm.DB) *gorm.DB {
	if spec == nil {
		return nil
	}

	if s, ok := spec.(shared.AndSpecification); ok {
		return t.translateAnd(s)
	}

	return t.translateConcrete(spec)
}

// translateAnd 依次应用每个子条件；无法翻译的子条件被忽略
func (t *GormTranslator) translateAnd(spec shared.AndSpecification) func(*gorm.DB) *gorm.DB {
	scopes := make([]func(*gorm.DB) *gorm.DB, 0, len(spec.Specs))
	for _, s := range spec.Specs {
		if scope := t.Translate(s); scope != nil {
			scopes = append(scopes, scope)
		}
	}
	return func(db *gorm.DB) *gorm.DB {
		for _, scope := range scopes {
			db = scope(db)
		}
		return db
	}
}

// translateConcrete translates order list specifications over the orders table
func (t *GormTranslator) translateConcrete(spec shared.Specification) func(*gorm.DB) *gorm.DB {
	switch s := spec.(type) {
	case order.PlacedBetweenSpecification:
		return func(db *gorm.DB) *gorm.DB {
			if s.From != nil {
				db = db.Where("orders.placed_at >= ?", *s.From)
			}
			if s.To != nil {
				db = db.Where("orders.placed_at <= ?", *s.To)
			}
			return db
		}
	case order.StatusInSpecification:
		return func(db *gorm.DB) *gorm.DB {
			switch {
			case len(s.IDs) > 0 && s.IncludeUnassigned:
				return db.Where("(orders.order_status_id IN ? OR orders.order_status_id IS NULL)", s.IDs)
			case len(s.IDs) > 0:
				return db.Where("orders.order_status_id IN ?", s.IDs)
			case s.IncludeUnassigned:
				return db.Where("orders.order_status_id IS NULL")
			}
			return db
		}
	case order.PaidSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("orders.is_paid = ?", s.Paid)
		}
	case order.PaymentMethodInSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("orders.payment_method IN ?", s.Methods)
		}
	case order.NumberContainsSpecification:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("LOWER(orders.order_number) LIKE ?", likePattern(s.Text))
		}
	}

	// Unknown specification type
	return nil
}

// likePattern 转义 LIKE 通配符后包裹为 %text%
func likePattern(text string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(text))
	return "%" + escaped + "%"
}
