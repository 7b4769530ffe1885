package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"orderflow/config"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SessionCounter reports open realtime sessions
type SessionCounter interface {
	Len() int
}

// Controller Health check controller
type Controller struct {
	config    *config.Config
	db        Pinger
	sessions  SessionCounter
	startTime time.Time
}

// NewController Create health check controller; db and sessions may be nil
func NewController(cfg *config.Config, db Pinger, sessions SessionCounter) *Controller {
	return &Controller{
		config:    cfg,
		db:        db,
		sessions:  sessions,
		startTime: time.Now(),
	}
}

const pingTimeout = 2 * time.Second

// RegisterRoutes Register health check routes
func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", c.Health)
	router.GET("/health/live", c.Liveness)
	router.GET("/health/ready", c.Readiness)
}

// HealthResponse Health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	Timestamp string           `json:"timestamp"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Sessions  *int             `json:"realtime_sessions,omitempty"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check Check item
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo System information
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
}

// Health Complete health check
func (c *Controller) Health(ctx *gin.Context) {
	checks := make(map[string]Check)
	overallStatus := "healthy"

	// Check database connection
	if c.db != nil {
		dbCheck := c.checkDatabase(ctx.Request.Context())
		checks["database"] = dbCheck
		if dbCheck.Status != "healthy" {
			overallStatus = "unhealthy"
		}
	}

	response := HealthResponse{
		Status:    overallStatus,
		Version:   c.config.App.Version,
		Uptime:    time.Since(c.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if c.sessions != nil {
		n := c.sessions.Len()
		response.Sessions = &n
	}

	// Only expose system info in development mode
	if c.config.IsDevelopment() {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		response.System = &SystemInfo{
			GoVersion:    runtime.Version(),
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     memStats.Alloc,
		}
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	ctx.JSON(statusCode, response)
}

// Liveness Liveness check (Kubernetes liveness)
func (c *Controller) Liveness(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// Readiness Readiness check (Kubernetes readiness)
func (c *Controller) Readiness(ctx *gin.Context) {
	// Check database connection
	if c.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), pingTimeout)
		defer cancel()
		if err := c.db.PingContext(pingCtx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "database not available",
			})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// checkDatabase Check database connection
func (c *Controller) checkDatabase(ctx context.Context) Check {
	if c.db == nil {
		return Check{
			Status:  "unhealthy",
			Message: "database connection not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	err := c.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{
			Status:  "unhealthy",
			Message: err.Error(),
			Latency: latency.String(),
		}
	}

	return Check{
		Status:  "healthy",
		Latency: latency.String(),
	}
}
