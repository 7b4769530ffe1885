package ctxutil

import (
	"context"

	"orderflow/api/response"
	"orderflow/domain/account"
	"orderflow/infrastructure/persistence"

	"github.com/gin-gonic/gin"
)

// ClaimsKey 鉴权中间件写入 gin context 的键
const ClaimsKey = "account_claims"

func WithRequestID(ctx *gin.Context) context.Context {
	requestID := response.GetRequestID(ctx)
	return persistence.ContextWithRequestID(ctx.Request.Context(), requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return persistence.RequestIDFromContext(ctx)
}

func SetClaims(ctx *gin.Context, claims account.Claims) {
	ctx.Set(ClaimsKey, claims)
}

// Claims returns the authenticated caller; ok is false for anonymous requests
func Claims(ctx *gin.Context) (account.Claims, bool) {
	v, exists := ctx.Get(ClaimsKey)
	if !exists {
		return account.Claims{}, false
	}
	claims, ok := v.(account.Claims)
	return claims, ok
}
