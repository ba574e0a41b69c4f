package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"z-book-ai-api/pkg/logger"
)

// DefaultAccessLogSkipPaths 探针与指标路径不写访问日志
var DefaultAccessLogSkipPaths = []string{"/health", "/ready", "/live", "/metrics"}

// AccessLog 每个请求结束后写一条访问日志，5xx 记为 warn
func AccessLog(skipPaths []string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"route", routeLabel(c),
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			args = append(args, "errors", errs.String())
		}

		ctx := c.Request.Context()
		if status >= http.StatusInternalServerError {
			logger.Warn(ctx, "request failed", args...)
			return
		}
		logger.Info(ctx, "request served", args...)
	}
}
