/*
Package order - 订单领域错误定义

设计原则:
1. 哨兵错误包装 shared 中的错误类别，errors.Is() 既能判断具体错误，也能判断类别
2. 错误构造函数在创建时捕获堆栈，便于定位错误发生点
3. 不包含 HTTP 状态码等非领域概念
*/
package order

import (
	"fmt"
	"strconv"

	"orderflow/domain/shared"
)

var (
	// ErrOrderNotFound 订单未找到
	ErrOrderNotFound = fmt.Errorf("order not found: %w", shared.ErrNotFound)

	// ErrEmptyOrderItems 订单项为空
	ErrEmptyOrderItems = fmt.Errorf("order must have at least one item: %w", shared.ErrInvalidInput)

	// ErrInvalidLineItem 订单项数量或单价非法
	ErrInvalidLineItem = fmt.Errorf("invalid line item: %w", shared.ErrInvalidInput)

	// ErrInvalidOrder 订单字段校验失败
	ErrInvalidOrder = fmt.Errorf("invalid order: %w", shared.ErrInvalidInput)

	// ErrEmptyIDList 批量操作未提供订单 ID
	ErrEmptyIDList = fmt.Errorf("order id list must not be empty: %w", shared.ErrInvalidInput)

	// ErrNumberAlreadyAssigned 订单号只能分配一次
	ErrNumberAlreadyAssigned = fmt.Errorf("order number already assigned: %w", shared.ErrConflict)

	// ErrAccessDenied 客户只能访问自己的订单
	ErrAccessDenied = fmt.Errorf("order access denied: %w", shared.ErrForbidden)
)

// NewOrderNotFoundError 创建订单未找到错误（带堆栈）
func NewOrderNotFoundError(orderID int64) error {
	return &orderDomainError{
		sentinel: ErrOrderNotFound,
		entity:   "order",
		message:  "order not found: " + strconv.FormatInt(orderID, 10),
		stack:    shared.CaptureStack(3),
	}
}

// NewEmptyOrderItemsError 创建订单项为空错误
func NewEmptyOrderItemsError() error {
	return &orderDomainError{
		sentinel: ErrEmptyOrderItems,
		entity:   "order",
		field:    "items",
		message:  "order must have at least one item",
		stack:    shared.CaptureStack(3),
	}
}

// NewInvalidLineItemError index 为订单项在请求中的位置
func NewInvalidLineItemError(index int, reason string) error {
	return &orderDomainError{
		sentinel: ErrInvalidLineItem,
		entity:   "order",
		field:    fmt.Sprintf("items[%d]", index),
		message:  fmt.Sprintf("item %d: %s", index, reason),
		stack:    shared.CaptureStack(3),
	}
}

// NewInvalidOrderError 创建订单字段校验错误
func NewInvalidOrderError(field, reason string) error {
	return &orderDomainError{
		sentinel: ErrInvalidOrder,
		entity:   "order",
		field:    field,
		message:  reason,
		stack:    shared.CaptureStack(3),
	}
}

func NewEmptyIDListError() error {
	return &orderDomainError{
		sentinel: ErrEmptyIDList,
		entity:   "order",
		field:    "ids",
		message:  "at least one order id is required",
		stack:    shared.CaptureStack(3),
	}
}

func NewNumberAlreadyAssignedError(current, requested string) error {
	return &orderDomainError{
		sentinel: ErrNumberAlreadyAssigned,
		entity:   "order",
		field:    "orderNumber",
		message:  "order number " + current + " cannot be replaced by " + requested,
		stack:    shared.CaptureStack(3),
	}
}

func NewAccessDeniedError(accountID int64) error {
	return &orderDomainError{
		sentinel: ErrAccessDenied,
		entity:   "order",
		message:  "account " + strconv.FormatInt(accountID, 10) + " cannot access these orders",
		stack:    shared.CaptureStack(3),
	}
}

// orderDomainError 订单领域错误（带堆栈），实现 error, Unwrap, Stacker 接口
type orderDomainError struct {
	sentinel error
	entity   string
	field    string
	message  string
	stack    []uintptr
}

func (e *orderDomainError) Error() string {
	return e.message
}

func (e *orderDomainError) Unwrap() error {
	return e.sentinel
}

// Field 返回出错字段（可能为空）
func (e *orderDomainError) Field() string {
	return e.field
}

// Stack 实现 shared.Stacker 接口
func (e *orderDomainError) Stack() []string {
	if len(e.stack) == 0 {
		return nil
	}
	return shared.FormatStack(e.stack)
}
