/*
Package shared - 领域层共享错误定义

设计原则:
1. 领域层定义哨兵错误(sentinel errors)，用于 errors.Is() 类型安全判断
2. DomainError 在创建时捕获堆栈，但延迟格式化（按需打印）
3. 领域错误不包含 HTTP 状态码等传输层概念

堆栈捕获策略:
- 捕获时机：错误创建时（构造函数内）
- 格式化时机：日志打印时（Stack() 方法）
*/
package shared

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

var (
	// ErrNotFound 资源未找到
	ErrNotFound = errors.New("not found")

	// ErrConflict 资源冲突（唯一约束、外键引用、单一最终状态规则）
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput 无效输入（参数校验失败）
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized 未授权（凭证缺失或无效）
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden 禁止访问（已授权但无权限）
	ErrForbidden = errors.New("forbidden")
)

// DomainError 携带业务上下文和发生点堆栈的结构化错误
type DomainError struct {
	// Err 底层哨兵错误，用于 errors.Is() 判断
	Err error

	// Entity 发生错误的实体名称（如 "order", "order_status"）
	Entity string

	// Message 人类可读的错误描述
	Message string

	// Field 可选：发生错误的字段名
	Field string

	stack []uintptr
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Stack 按需格式化堆栈
func (e *DomainError) Stack() []string {
	return FormatStack(e.stack)
}

// CaptureStack 捕获当前调用栈
// skip: 跳过的帧数（通常为 3：Callers, CaptureStack, NewXxxError）
func CaptureStack(skip int) []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	return pcs[:n]
}

// FormatStack 格式化堆栈帧，过滤 runtime 内部帧，最多返回 10 帧
func FormatStack(stack []uintptr) []string {
	if len(stack) == 0 {
		return nil
	}

	frames := runtime.CallersFrames(stack)
	var result []string
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			result = append(result, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more || len(result) >= 10 {
			break
		}
	}
	return result
}

// NewDomainError 以指定哨兵创建领域错误，供子领域包复用
func NewDomainError(sentinel error, entity, field, message string) *DomainError {
	return &DomainError{
		Err:     sentinel,
		Entity:  entity,
		Field:   field,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// NewNotFoundError 创建"未找到"领域错误
func NewNotFoundError(entity string) error {
	return &DomainError{
		Err:     ErrNotFound,
		Entity:  entity,
		Message: entity + " not found",
		stack:   CaptureStack(3),
	}
}

// NewConflictError 创建"冲突"领域错误
func NewConflictError(entity, message string) error {
	return &DomainError{
		Err:     ErrConflict,
		Entity:  entity,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// NewValidationError 创建"校验失败"领域错误
func NewValidationError(entity, field, reason string) error {
	return &DomainError{
		Err:     ErrInvalidInput,
		Entity:  entity,
		Field:   field,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// NewUnauthorizedError 创建"未授权"领域错误
func NewUnauthorizedError(reason string) error {
	return &DomainError{
		Err:     ErrUnauthorized,
		Entity:  "account",
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// NewForbiddenError 创建"禁止访问"领域错误
func NewForbiddenError(entity, reason string) error {
	return &DomainError{
		Err:     ErrForbidden,
		Entity:  entity,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// Stacker 可提供堆栈的错误接口，API 层用它统一提取堆栈
type Stacker interface {
	Stack() []string
}
