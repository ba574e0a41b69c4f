package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"z-book-ai-api/pkg/logger"
)

const (
	// RequestIDHeader 请求 ID 头，也作为进度主题的键
	RequestIDHeader = "X-Request-ID"

	maxRequestIDLen = 128
)

// RequestID 注入请求 ID
// 调用方传入的 ID 会成为进度主题和 Redis 键的一部分，不合规时改用新生成的 UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if !ValidRequestID(requestID) {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(logger.With(ctx, "client_ip", c.ClientIP()))

		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// ValidRequestID 只接受 [A-Za-z0-9._-]，长度 1..128
func ValidRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		ch := id[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.':
		default:
			return false
		}
	}
	return true
}
