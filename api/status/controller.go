/*
Package status - 订单状态目录 API 控制器

所有接口只对员工角色开放。
*/
package status

import (
	"net/http"
	"strconv"

	"orderflow/api/ctxutil"
	"orderflow/api/middleware"
	"orderflow/api/response"
	statusapp "orderflow/application/status"
	"orderflow/domain/status"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	statusService *statusapp.Service
	auth          middleware.Authenticator
	staffRoles    []string
}

func NewController(statusService *statusapp.Service, auth middleware.Authenticator, staffRoles ...string) *Controller {
	return &Controller{statusService: statusService, auth: auth, staffRoles: staffRoles}
}

// RegisterRoutes 注册状态目录路由
func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/order-statuses", middleware.RequireAuth(c.auth), middleware.RequireRole(c.staffRoles...))
	{
		group.GET("", c.List)
		group.POST("", c.Create)
		group.PUT("/sequence", c.Reorder)
		group.GET("/:id", c.Get)
		group.PUT("/:id", c.Update)
		group.DELETE("/:id", c.Delete)
	}
}

// List GET /api/v1/order-statuses
func (c *Controller) List(ctx *gin.Context) {
	statuses, err := c.statusService.List(ctxutil.WithRequestID(ctx))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, statuses, "order statuses retrieved successfully")
}

// Get GET /api/v1/order-statuses/:id
func (c *Controller) Get(ctx *gin.Context) {
	id, ok := statusID(ctx)
	if !ok {
		return
	}
	st, err := c.statusService.Get(ctxutil.WithRequestID(ctx), id)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, st, "order status retrieved successfully")
}

// Create POST /api/v1/order-statuses
func (c *Controller) Create(ctx *gin.Context) {
	var cmd statusapp.CreateStatusCommand
	if err := ctx.ShouldBindJSON(&cmd); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}
	st, err := c.statusService.Create(ctxutil.WithRequestID(ctx), cmd)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleCreated(ctx, st, "order status created successfully")
}

// Update PUT /api/v1/order-statuses/:id
func (c *Controller) Update(ctx *gin.Context) {
	id, ok := statusID(ctx)
	if !ok {
		return
	}
	var cmd statusapp.UpdateStatusCommand
	if err := ctx.ShouldBindJSON(&cmd); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}
	st, err := c.statusService.Update(ctxutil.WithRequestID(ctx), id, cmd)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, st, "order status updated successfully")
}

// Delete DELETE /api/v1/order-statuses/:id
func (c *Controller) Delete(ctx *gin.Context) {
	id, ok := statusID(ctx)
	if !ok {
		return
	}
	if err := c.statusService.Delete(ctxutil.WithRequestID(ctx), id); err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleNoContent(ctx)
}

// Reorder PUT /api/v1/order-statuses/sequence
func (c *Controller) Reorder(ctx *gin.Context) {
	var cmd statusapp.ReorderCommand
	if err := ctx.ShouldBindJSON(&cmd); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}
	result, err := c.statusService.Reorder(ctxutil.WithRequestID(ctx), cmd)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, result, "order status sequence updated")
}

func statusID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.HandleAppError(ctx, status.NewInvalidStatusError("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}
