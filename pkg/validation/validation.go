// Package validation wraps go-playground/validator for application commands.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"orderflow/domain/shared"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		// 字段名使用 json 标签，与请求体保持一致
		instance.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return instance
}

// Struct validates v and reports the first violation as a shared.ErrInvalidInput domain error
func Struct(entity string, v interface{}) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return shared.NewValidationError(entity, "", err.Error())
	}
	fe := fieldErrs[0]
	field := trimRoot(fe.Namespace())
	return shared.NewValidationError(entity, field, describe(field, fe))
}

// trimRoot drops the struct name prefix: "Command.items[0].quantity" -> "items[0].quantity"
func trimRoot(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s element(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must contain exactly %s element(s)", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}
