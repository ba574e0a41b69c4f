package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"z-book-ai-api/pkg/logger"
)

// Trace OpenTelemetry 追踪中间件，探活与指标端点不产生 span
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			for _, p := range DefaultAccessLogSkipPaths {
				if r.URL.Path == p {
					return false
				}
			}
			return true
		}),
	)
}

// TraceContext 注入 trace_id 到日志上下文与响应头
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
		if sc.IsValid() {
			traceID := sc.TraceID().String()
			spanID := sc.SpanID().String()

			c.Set("trace_id", traceID)
			c.Set("span_id", spanID)

			c.Request = c.Request.WithContext(logger.With(c.Request.Context(), "trace_id", traceID, "span_id", spanID))

			c.Header("X-Trace-ID", traceID)
		}

		c.Next()
	}
}
