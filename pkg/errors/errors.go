package errors

import (
	"errors"
	"fmt"
	"net/http"

	"orderflow/domain/account"
	"orderflow/domain/order"
	"orderflow/domain/shared"
	"orderflow/domain/status"
)

// ErrorCode 错误码
type ErrorCode string

const (
	// 通用错误码
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeForbidden      ErrorCode = "FORBIDDEN"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeConflict       ErrorCode = "CONFLICT"
	CodeTooManyRequest ErrorCode = "TOO_MANY_REQUESTS"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"

	// 业务错误码 - 订单
	CodeOrderNotFound   ErrorCode = "ORDER_NOT_FOUND"
	CodeEmptyOrderItems ErrorCode = "EMPTY_ORDER_ITEMS"
	CodeInvalidLineItem ErrorCode = "INVALID_LINE_ITEM"

	// 业务错误码 - 订单状态
	CodeStatusNotFound      ErrorCode = "ORDER_STATUS_NOT_FOUND"
	CodeUnknownStatus       ErrorCode = "UNKNOWN_ORDER_STATUS"
	CodeSecondPositiveFinal ErrorCode = "SECOND_POSITIVE_FINAL_STATUS"
	CodeStatusInUse         ErrorCode = "ORDER_STATUS_IN_USE"

	// 业务错误码 - 账户
	CodeAccountNotFound    ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	CodeAccountTerminated  ErrorCode = "ACCOUNT_TERMINATED"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode 返回对应的HTTP状态码
func (e *AppError) HTTPStatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidation, CodeEmptyOrderItems, CodeInvalidLineItem, CodeUnknownStatus:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeInvalidCredentials, CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeForbidden, CodeAccountTerminated:
		return http.StatusForbidden
	case CodeNotFound, CodeOrderNotFound, CodeStatusNotFound, CodeAccountNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeSecondPositiveFinal, CodeStatusInUse:
		return http.StatusConflict
	case CodeTooManyRequest:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// New 创建新错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message)
}

func TooManyRequests(message string) *AppError {
	return New(CodeTooManyRequest, message)
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

// Is 检查是否为特定错误码
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// specificCodes 具体业务哨兵优先于通用类别匹配
var specificCodes = []struct {
	sentinel error
	code     ErrorCode
}{
	{order.ErrOrderNotFound, CodeOrderNotFound},
	{order.ErrEmptyOrderItems, CodeEmptyOrderItems},
	{order.ErrInvalidLineItem, CodeInvalidLineItem},
	{status.ErrStatusNotFound, CodeStatusNotFound},
	{status.ErrUnknownStatus, CodeUnknownStatus},
	{status.ErrSecondPositiveFinal, CodeSecondPositiveFinal},
	{status.ErrStatusInUse, CodeStatusInUse},
	{account.ErrAccountNotFound, CodeAccountNotFound},
	{account.ErrInvalidCredentials, CodeInvalidCredentials},
	{account.ErrInvalidToken, CodeInvalidToken},
	{account.ErrAccountTerminated, CodeAccountTerminated},
}

var kindCodes = []struct {
	sentinel error
	code     ErrorCode
}{
	{shared.ErrNotFound, CodeNotFound},
	{shared.ErrInvalidInput, CodeValidation},
	{shared.ErrConflict, CodeConflict},
	{shared.ErrUnauthorized, CodeUnauthorized},
	{shared.ErrForbidden, CodeForbidden},
}

// FromDomainError 将领域错误映射为应用错误
// 领域错误的 Message 直接作为用户可见消息；未识别的错误一律视为内部错误
func FromDomainError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	for _, m := range specificCodes {
		if errors.Is(err, m.sentinel) {
			return Wrap(err, m.code, userMessage(err))
		}
	}
	for _, m := range kindCodes {
		if errors.Is(err, m.sentinel) {
			return Wrap(err, m.code, userMessage(err))
		}
	}

	return Wrap(err, CodeInternal, "internal server error")
}

// userMessage 优先使用最内层领域错误的消息，避免暴露外层拼接的步骤上下文
func userMessage(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	var stacker interface {
		error
		shared.Stacker
	}
	if errors.As(err, &stacker) {
		return stacker.Error()
	}
	return err.Error()
}
