/*
Package order - 订单 API 控制器

职责:
1. 接收 HTTP 请求，解析参数
2. 调用应用服务处理业务逻辑
3. 使用 response 包统一处理响应和错误

错误处理原则:
1. 参数绑定错误: 使用 response.HandleError 直接返回 400
2. 业务错误: 使用 response.HandleAppError 自动映射状态码
3. HandleAppError 会自动调用 errors.FromDomainError 转换错误
*/
package order

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"orderflow/api/ctxutil"
	"orderflow/api/middleware"
	"orderflow/api/response"
	orderapp "orderflow/application/order"
	"orderflow/domain/account"
	"orderflow/domain/order"

	"github.com/gin-gonic/gin"
)

// Controller 订单控制器
type Controller struct {
	orderService *orderapp.ApplicationService
	auth         middleware.Authenticator
	staffRoles   []string
}

// NewController 创建订单控制器；staffRoles 可访问经理端接口
func NewController(orderService *orderapp.ApplicationService, auth middleware.Authenticator, staffRoles ...string) *Controller {
	if len(staffRoles) == 0 {
		staffRoles = []string{account.RoleManager, account.RoleAdmin}
	}
	return &Controller{
		orderService: orderService,
		auth:         auth,
		staffRoles:   staffRoles,
	}
}

// RegisterRoutes 注册订单路由
func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	orderGroup := router.Group("/orders")

	client := orderGroup.Group("/client")
	{
		client.POST("", middleware.OptionalAuth(c.auth), c.PlaceOrder)
		client.GET("/:id", middleware.RequireAuth(c.auth), c.ListAccountOrders)
	}

	manager := orderGroup.Group("/manager", middleware.RequireAuth(c.auth), middleware.RequireRole(c.staffRoles...))
	{
		manager.POST("", c.CreateOrder)
		manager.GET("", c.ListOrders)
		manager.GET("/:id", c.GetOrder)
		manager.PUT("/:id", c.UpdateOrder)
		manager.DELETE("/:id", c.DeleteOrdersByPath)
		manager.DELETE("", c.DeleteOrders)
		manager.PATCH("/status", c.ChangeStatus)
		manager.PATCH("/payment", c.ChangePayment)
	}
}

// PlaceOrder 客户下单
// POST /api/v1/orders/client
func (c *Controller) PlaceOrder(ctx *gin.Context) {
	var cmd orderapp.PlaceOrderCommand
	if err := ctx.ShouldBindJSON(&cmd); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}
	// 已登录时以令牌中的账户为准
	if claims, ok := ctxutil.Claims(ctx); ok {
		accountID := claims.AccountID
		cmd.AccountID = &accountID
	}

	result, err := c.orderService.PlaceOrderAsClient(ctxutil.WithRequestID(ctx), cmd)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleCreated(ctx, result, "order placed successfully")
}

// ListAccountOrders 账户自己的订单，按下单时间倒序
// GET /api/v1/orders/client/:id
func (c *Controller) ListAccountOrders(ctx *gin.Context) {
	accountID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims, _ := ctxutil.Claims(ctx)
	if claims.AccountID != accountID && !c.isStaff(claims.Role) {
		response.HandleAppError(ctx, order.NewAccessDeniedError(accountID))
		return
	}

	orders, err := c.orderService.ListOrdersByAccount(ctxutil.WithRequestID(ctx), accountID)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, orders, "orders retrieved successfully")
}

// CreateOrder 经理创建订单
// POST /api/v1/orders/manager
func (c *Controller) CreateOrder(ctx *gin.Context) {
	var cmd orderapp.ManagerOrderCommand
	if err := ctx.ShouldBindJSON(&cmd); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	result, err := c.orderService.CreateOrderAsManager(ctxutil.WithRequestID(ctx), cmd)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleCreated(ctx, result, "order created successfully")
}

// ListOrders 经理端订单列表
// GET /api/v1/orders/manager?placedFrom=&placedTo=&statuses=1,null&isPaid=&paymentMethods=&search=&page=&limit=
func (c *Controller) ListOrders(ctx *gin.Context) {
	query, err := parseListQuery(ctx)
	if err != nil {
		response.HandleError(ctx, err, "invalid query parameters", http.StatusBadRequest)
		return
	}

	list, err := c.orderService.ListOrders(ctxutil.WithRequestID(ctx), query)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, list, "orders retrieved successfully")
}

// GetOrder 获取订单详情
// GET /api/v1/orders/manager/:id
func (c *Controller) GetOrder(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	detail, err := c.orderService.GetOrder(ctxutil.WithRequestID(ctx), id)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, detail, "order retrieved successfully")
}

// UpdateOrder 经理整体更新订单
// PUT /api/v1/orders/manager/:id
func (c *Controller) UpdateOrder(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var cmd orderapp.ManagerOrderCommand
	if err := ctx.ShouldBindJSON(&cmd); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	detail, err := c.orderService.UpdateOrder(ctxutil.WithRequestID(ctx), id, cmd)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, detail, "order updated successfully")
}

// DeleteOrdersByPath id 可以是逗号分隔的列表
// DELETE /api/v1/orders/manager/:id
func (c *Controller) DeleteOrdersByPath(ctx *gin.Context) {
	ids, err := parseIDList(ctx.Param("id"))
	if err != nil {
		response.HandleError(ctx, err, "invalid order id list", http.StatusBadRequest)
		return
	}
	c.deleteOrders(ctx, ids)
}

type deleteRequest struct {
	IDs []int64 `json:"ids"`
}

// DeleteOrders
// DELETE /api/v1/orders/manager
func (c *Controller) DeleteOrders(ctx *gin.Context) {
	var req deleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}
	c.deleteOrders(ctx, req.IDs)
}

func (c *Controller) deleteOrders(ctx *gin.Context, ids []int64) {
	result, err := c.orderService.DeleteOrders(ctxutil.WithRequestID(ctx), ids)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, result, "orders deleted")
}

// ChangeStatus 批量修改订单状态
// PATCH /api/v1/orders/manager/status
func (c *Controller) ChangeStatus(ctx *gin.Context) {
	var cmd orderapp.BulkStatusCommand
	if err := ctx.ShouldBindJSON(&cmd); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	result, err := c.orderService.BulkChangeStatus(ctxutil.WithRequestID(ctx), cmd)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, result, "order statuses updated")
}

// ChangePayment 批量修改支付状态
// PATCH /api/v1/orders/manager/payment
func (c *Controller) ChangePayment(ctx *gin.Context) {
	var cmd orderapp.BulkPaymentCommand
	if err := ctx.ShouldBindJSON(&cmd); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	result, err := c.orderService.BulkChangePaymentStatus(ctxutil.WithRequestID(ctx), cmd)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, result, "payment statuses updated")
}

func (c *Controller) isStaff(role string) bool {
	for _, r := range c.staffRoles {
		if r == role {
			return true
		}
	}
	return false
}

func pathID(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.HandleAppError(ctx, order.NewInvalidOrderError(name, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseListQuery(ctx *gin.Context) (orderapp.ListOrdersQuery, error) {
	var (
		q   orderapp.ListOrdersQuery
		err error
	)
	if q.PlacedFrom, err = parseTime(ctx.Query("placedFrom")); err != nil {
		return q, err
	}
	if q.PlacedTo, err = parseTime(ctx.Query("placedTo")); err != nil {
		return q, err
	}
	if raw := ctx.Query("statuses"); raw != "" {
		if q.Statuses, err = orderapp.ParseStatusList(raw); err != nil {
			return q, err
		}
	}
	if raw := ctx.Query("isPaid"); raw != "" {
		paid, err := strconv.ParseBool(raw)
		if err != nil {
			return q, err
		}
		q.Paid = &paid
	}
	if raw := ctx.Query("paymentMethods"); raw != "" {
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				q.PaymentMethods = append(q.PaymentMethods, m)
			}
		}
	}
	q.Search = ctx.Query("search")
	if raw := ctx.Query("page"); raw != "" {
		if q.Page, err = strconv.Atoi(raw); err != nil {
			return q, err
		}
	}
	if raw := ctx.Query("limit"); raw != "" {
		if q.Limit, err = strconv.Atoi(raw); err != nil {
			return q, err
		}
	}
	return q, nil
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
