package persistence

import (
	"context"

	"gorm.io/gorm"
)

// txKey is the context key for storing the transaction
type txKey struct{}

// requestIDKey is the context key for the HTTP request id
type requestIDKey struct{}

// TxFromContext retrieves the GORM transaction from context
// Returns nil if no transaction is present
func TxFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// ContextWithTx returns a new context with the GORM transaction attached
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// ContextWithRequestID attaches the request id so SQL logs can be correlated
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns "" when none is attached
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
