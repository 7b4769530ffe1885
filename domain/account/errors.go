/*
Package account 定义账户领域错误。
*/
package account

import (
	"fmt"
	"strconv"

	"orderflow/domain/shared"
)

var (
	ErrAccountNotFound    = fmt.Errorf("account not found: %w", shared.ErrNotFound)
	ErrInvalidCredentials = fmt.Errorf("invalid login or password: %w", shared.ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("invalid or expired token: %w", shared.ErrUnauthorized)
	ErrAccountTerminated  = fmt.Errorf("account is terminated: %w", shared.ErrForbidden)
	ErrRoleNotAllowed     = fmt.Errorf("role not allowed: %w", shared.ErrForbidden)
)

func NewAccountNotFoundError(accountID int64) error {
	return &accountDomainError{
		sentinel: ErrAccountNotFound,
		entity:   "account",
		message:  "account not found: " + strconv.FormatInt(accountID, 10),
		stack:    shared.CaptureStack(3),
	}
}

func NewInvalidCredentialsError() error {
	return &accountDomainError{
		sentinel: ErrInvalidCredentials,
		entity:   "account",
		message:  "invalid login or password",
		stack:    shared.CaptureStack(3),
	}
}

func NewInvalidTokenError(reason string) error {
	return &accountDomainError{
		sentinel: ErrInvalidToken,
		entity:   "account",
		field:    "token",
		message:  "invalid token: " + reason,
		stack:    shared.CaptureStack(3),
	}
}

func NewAccountTerminatedError(accountID int64) error {
	return &accountDomainError{
		sentinel: ErrAccountTerminated,
		entity:   "account",
		message:  "account " + strconv.FormatInt(accountID, 10) + " is terminated",
		stack:    shared.CaptureStack(3),
	}
}

func NewRoleNotAllowedError(role string) error {
	return &accountDomainError{
		sentinel: ErrRoleNotAllowed,
		entity:   "account",
		message:  "role " + strconv.Quote(role) + " may not access this resource",
		stack:    shared.CaptureStack(3),
	}
}

type accountDomainError struct {
	sentinel error
	entity   string
	field    string
	message  string
	stack    []uintptr
}

func (e *accountDomainError) Error() string {
	return e.message
}

func (e *accountDomainError) Unwrap() error {
	return e.sentinel
}

func (e *accountDomainError) Stack() []string {
	return shared.FormatStack(e.stack)
}
