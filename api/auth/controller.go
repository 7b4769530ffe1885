package auth

import (
	"net/http"

	"orderflow/api/ctxutil"
	"orderflow/api/response"
	accountapp "orderflow/application/account"

	"github.com/gin-gonic/gin"
)

// Controller 登录接口
type Controller struct {
	accountService *accountapp.Service
}

func NewController(accountService *accountapp.Service) *Controller {
	return &Controller{accountService: accountService}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/auth/login", c.Login)
}

// Login POST /api/v1/auth/login
func (c *Controller) Login(ctx *gin.Context) {
	var cmd accountapp.LoginCommand
	if err := ctx.ShouldBindJSON(&cmd); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}
	result, err := c.accountService.Login(ctxutil.WithRequestID(ctx), cmd)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, result, "logged in")
}
