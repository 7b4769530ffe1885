package po

import "orderflow/domain/status"

// OrderStatusPO status catalog persistence object
// IsFinalResultPositive is tri-state: NULL non-final, true final-positive, false final-other
type OrderStatusPO struct {
	ID                    int64  `gorm:"primaryKey;autoIncrement"`
	Name                  string `gorm:"size:100;not null"`
	SequenceNumber        int    `gorm:"not null;index"`
	IsFinalResultPositive *bool
	IsVisibleToClient     bool `gorm:"not null;default:false"`
}

// TableName Specify table name
func (OrderStatusPO) TableName() string {
	return "order_statuses"
}

func FromStatusDomain(s *status.OrderStatus) *OrderStatusPO {
	return &OrderStatusPO{
		ID:                    s.ID(),
		Name:                  s.Name(),
		SequenceNumber:        s.Sequence(),
		IsFinalResultPositive: s.FinalOutcome().Flag(),
		IsVisibleToClient:     s.ClientVisible(),
	}
}

func (p *OrderStatusPO) ToDomain() *status.OrderStatus {
	return status.Rebuild(
		p.ID,
		p.Name,
		p.SequenceNumber,
		status.FinalOutcomeFromFlag(p.IsFinalResultPositive),
		p.IsVisibleToClient,
	)
}
