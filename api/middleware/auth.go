package middleware

import (
	"context"
	"strings"

	"orderflow/api/ctxutil"
	"orderflow/api/response"
	"orderflow/domain/account"

	"github.com/gin-gonic/gin"
)

// Authenticator verifies a bearer token
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (account.Claims, error)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// RequireAuth rejects requests without a valid bearer token
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.HandleAppError(c, account.NewInvalidTokenError("missing bearer token"))
			c.Abort()
			return
		}
		claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.HandleAppError(c, err)
			c.Abort()
			return
		}
		ctxutil.SetClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth binds the caller when a valid token is present; invalid tokens are rejected
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bearerToken(c) == "" {
			c.Next()
			return
		}
		RequireAuth(auth)(c)
	}
}

// RequireRole must run after RequireAuth
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ctxutil.Claims(c)
		if !ok {
			response.HandleAppError(c, account.NewInvalidTokenError("not authenticated"))
			c.Abort()
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		response.HandleAppError(c, account.NewRoleNotAllowedError(claims.Role))
		c.Abort()
	}
}
