package middleware

import (
	"net/http"
	"sync"
	"time"

	"orderflow/api/response"
	"orderflow/config"
	apperrors "orderflow/pkg/errors"
	"orderflow/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// RequestIDHeader Request ID header
	RequestIDHeader = "X-Request-ID"
)

// RequestIDMiddleware Request ID middleware
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(response.RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// LoggingMiddleware Logging middleware
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		// 带令牌的查询串不写入日志
		if raw := c.Request.URL.RawQuery; raw != "" && c.Query("token") == "" {
			path = path + "?" + raw
		}

		log := logger.WithRequestID(response.GetRequestID(c))

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}

		switch {
		case c.Writer.Status() >= 500:
			log.Error("HTTP Request", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("HTTP Request", fields...)
		default:
			log.Info("HTTP Request", fields...)
		}
	}
}

// RecoveryMiddleware Recovery middleware
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				reqID := response.GetRequestID(c)

				logger.Error("Panic recovered",
					zap.String("request_id", reqID),
					zap.Any("error", recovered),
					zap.String("path", c.Request.URL.Path))

				response.Abort(c, http.StatusInternalServerError, string(apperrors.CodeInternal), "internal server error")
			}
		}()

		c.Next()
	}
}

// CORSMiddleware CORS middleware
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           time.Duration(cfg.MaxAge) * time.Second,
	}

	wildcard := false
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			wildcard = true
			break
		}
	}
	switch {
	case wildcard && cfg.AllowCredentials:
		// 携带凭证时不能返回 "*"，按请求来源回显
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	case wildcard:
		corsConfig.AllowAllOrigins = true
	case len(cfg.AllowOrigins) > 0:
		corsConfig.AllowOrigins = cfg.AllowOrigins
	default:
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	}

	return cors.New(corsConfig)
}

// RateLimiter Rate limiter
type RateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
}

// NewRateLimiter Create rate limiter
func NewRateLimiter(r float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:  rate.Limit(r),
		burst: burst,
	}
}

// getLimiter Get or create rate limiter for IP
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(ip); ok {
		return limiter.(*rate.Limiter)
	}

	limiter, _ := rl.limiters.LoadOrStore(ip, rate.NewLimiter(rl.rate, rl.burst))
	return limiter.(*rate.Limiter)
}

// RateLimitMiddleware Rate limiting middleware
func RateLimitMiddleware(cfg *config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limiter := NewRateLimiter(cfg.Rate, cfg.Burst)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		if !limiter.getLimiter(ip).Allow() {
			reqID := response.GetRequestID(c)

			logger.Warn("Rate limit exceeded",
				zap.String("request_id", reqID),
				zap.String("client_ip", ip))

			response.Abort(c, http.StatusTooManyRequests, string(apperrors.CodeTooManyRequest), "Too many requests, please try again later")
			return
		}

		c.Next()
	}
}
