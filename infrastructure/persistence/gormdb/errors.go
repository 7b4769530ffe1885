package gormdb

import (
	"errors"

	"orderflow/domain/shared"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// MySQL error numbers
const (
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
	mysqlDuplicateEntry  = 1062
)

// isForeignKeyViolation 被引用行删除或引用不存在的行
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlRowIsReferenced || mysqlErr.Number == mysqlNoReferencedRow
	}
	return errors.Is(err, gorm.ErrForeignKeyViolated)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// translateError 将约束冲突转换为领域冲突错误，其余错误原样返回
func translateError(err error, entity, message string) error {
	if err == nil {
		return nil
	}
	if isForeignKeyViolation(err) || isUniqueViolation(err) {
		return &constraintError{conflict: shared.NewConflictError(entity, message), cause: err}
	}
	return err
}

// constraintError 保留驱动错误作为原因，同时以领域冲突错误参与 errors.Is 判断
type constraintError struct {
	conflict error
	cause    error
}

func (e *constraintError) Error() string { return e.conflict.Error() }

func (e *constraintError) Unwrap() []error { return []error{e.conflict, e.cause} }
