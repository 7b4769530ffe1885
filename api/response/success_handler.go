package response

import (
	"net/http"

	"orderflow/infrastructure/persistence"
	"orderflow/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Warner 部分成功的结果（批量改状态、删除、重排序）携带的提示
type Warner interface {
	ResultWarnings() []string
}

func HandleSuccess(c *gin.Context, data interface{}, message string) {
	writeSuccess(c, http.StatusOK, data, message)
}

func HandleCreated(c *gin.Context, data interface{}, message string) {
	writeSuccess(c, http.StatusCreated, data, message)
}

func HandleNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// writeSuccess 结果中的 warnings 同时提升到响应信封并记录日志
func writeSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	resp := &Response{
		Success:   true,
		Data:      data,
		Message:   message,
		Code:      httpStatus,
		RequestID: getRequestID(c),
	}
	if w, ok := data.(Warner); ok {
		if warnings := w.ResultWarnings(); len(warnings) > 0 {
			resp.Warnings = warnings
			ctx := persistence.ContextWithRequestID(c.Request.Context(), resp.RequestID)
			logger.Ctx(ctx, nil).Warn("Request completed with warnings",
				zap.String("path", c.FullPath()),
				zap.Strings("warnings", warnings),
			)
		}
	}
	c.JSON(httpStatus, resp)
}
