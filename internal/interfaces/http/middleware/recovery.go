package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"z-book-ai-api/internal/interfaces/http/dto"
	"z-book-ai-api/pkg/logger"
)

// Recovery 捕获 handler panic；响应已开始写出（如 SSE）时只中断不再改写状态
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error(c.Request.Context(), "handler panic", fmt.Errorf("panic: %v", rec),
				"route", routeLabel(c),
				"stack", string(debug.Stack()),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			dto.InternalError(c, "internal server error")
		}()
		c.Next()
	}
}
