package shared

import "context"

// UnitOfWork 管理事务边界与聚合事件收集。
// fn 内的所有仓储调用共享同一个事务连接；fn 返回错误时整体回滚。
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
	RegisterNew(aggregate AggregateRoot)
}

// UnitOfWorkFactory 为每次业务操作创建独立的 UnitOfWork，避免并发请求共享聚合列表。
type UnitOfWorkFactory interface {
	New() UnitOfWork
}

type OutboxRepository interface {
	SaveEvent(ctx context.Context, event DomainEvent) error
}
