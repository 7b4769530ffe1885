package api

import (
	"net/http"

	"orderflow/api/auth"
	"orderflow/api/health"
	"orderflow/api/middleware"
	"orderflow/api/order"
	"orderflow/api/status"
	"orderflow/config"

	"github.com/gin-gonic/gin"
)

// Router Route configuration
type Router struct {
	engine           *gin.Engine
	config           *config.Config
	healthController *health.Controller
	authController   *auth.Controller
	orderController  *order.Controller
	statusController *status.Controller
	realtime         http.Handler
}

// NewRouter Create route configuration; realtime may be nil
func NewRouter(
	cfg *config.Config,
	healthController *health.Controller,
	authController *auth.Controller,
	orderController *order.Controller,
	statusController *status.Controller,
	realtime http.Handler,
) *Router {
	// Set Gin mode based on environment
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Add middleware (order is important)
	engine.Use(middleware.RequestIDMiddleware())                      // 1. Generate request ID first
	engine.Use(middleware.RecoveryMiddleware())                       // 2. Recovery middleware
	engine.Use(middleware.LoggingMiddleware())                        // 3. Logging middleware
	engine.Use(middleware.CORSMiddleware(&cfg.CORS))                  // 4. CORS
	engine.Use(middleware.RateLimitMiddleware(&cfg.Server.RateLimit)) // 5. Rate limiting

	return &Router{
		engine:           engine,
		config:           cfg,
		healthController: healthController,
		authController:   authController,
		orderController:  orderController,
		statusController: statusController,
		realtime:         realtime,
	}
}

// SetupRoutes Set up all routes
func (r *Router) SetupRoutes() {
	apiGroup := r.engine.Group("/api/v1")
	{
		r.healthController.RegisterRoutes(apiGroup)
		r.authController.RegisterRoutes(apiGroup)
		r.orderController.RegisterRoutes(apiGroup)
		r.statusController.RegisterRoutes(apiGroup)
	}

	if r.realtime != nil {
		path := r.config.Realtime.Path
		if path == "" {
			path = "/ws"
		}
		r.engine.GET(path, gin.WrapH(r.realtime))
	}

	r.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    r.config.App.Name,
			"version": r.config.App.Version,
			"env":     r.config.App.Env,
			"health":  "/api/v1/health",
		})
	})
}

// GetEngine Get Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
