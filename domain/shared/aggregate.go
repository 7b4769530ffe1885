package shared

// AggregateRoot 聚合根接口
// 聚合根维护一致性边界，并记录领域事件；事件由 UnitOfWork 在提交前写入 outbox
type AggregateRoot interface {
	// ID 返回聚合根标识
	ID() string

	// PullEvents 获取并清空聚合根记录的领域事件
	PullEvents() []DomainEvent
}
