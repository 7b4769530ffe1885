package response

import "github.com/gin-gonic/gin"

// RequestIDKey gin context 中的请求 ID
const RequestIDKey = "request_id"

// Response 统一响应结构；Error 为错误码，Code 为 HTTP 状态码
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Warnings  []string    `json:"warnings,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Abort 中断处理链并写出错误响应，供中间件使用
func Abort(c *gin.Context, httpStatus int, code, message string) {
	c.AbortWithStatusJSON(httpStatus, &Response{
		Success:   false,
		Error:     code,
		Message:   message,
		Code:      httpStatus,
		RequestID: getRequestID(c),
	})
}
