// Package middleware 提供 HTTP 中间件
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"z-book-ai-api/internal/interfaces/http/dto"
	"z-book-ai-api/pkg/logger"
)

const bearerPrefix = "Bearer "

// Auth 共享密钥认证中间件
// 请求头 Authorization 必须等于密钥，可带 Bearer 前缀；密钥为空时拒绝所有请求
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Authorized(c.GetHeader("Authorization"), secret) {
			logger.Warn(c.Request.Context(), "unauthorized request",
				"path", c.Request.URL.Path,
				"has_header", c.GetHeader("Authorization") != "",
			)
			dto.Unauthorized(c, "Unauthorized")
			return
		}
		c.Next()
	}
}

// Authorized 校验请求头是否匹配密钥
func Authorized(header, secret string) bool {
	if secret == "" || header == "" {
		return false
	}
	token := header
	if strings.HasPrefix(token, bearerPrefix) && !strings.HasPrefix(secret, bearerPrefix) {
		token = strings.TrimPrefix(token, bearerPrefix)
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
