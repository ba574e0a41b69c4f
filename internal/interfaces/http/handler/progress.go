package handler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"z-book-ai-api/internal/application/progress"
	"z-book-ai-api/internal/interfaces/http/dto"
	"z-book-ai-api/pkg/logger"
	"z-book-ai-api/pkg/metrics"
)

// ProgressReader 读取进度
type ProgressReader interface {
	Next(ctx context.Context, id string) (progress.Event, error)
}

// ProgressHandler 进度订阅处理器
type ProgressHandler struct {
	hub      ProgressReader
	interval time.Duration
}

// NewProgressHandler 创建进度订阅处理器
func NewProgressHandler(hub ProgressReader, interval time.Duration) *ProgressHandler {
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressHandler{hub: hub, interval: interval}
}

// Stream 按轮询间隔推送进度
// 每轮输出一个累计词数或 keep-alive；指定 request_id 的主题关闭并读空后输出 done 并结束
// @Summary 订阅生成进度
// @Tags Books
// @Produce text/event-stream
// @Param request_id query string false "生成请求的 X-Request-ID，为空时订阅全局进度"
// @Success 200 "SSE stream"
// @Router /progress [get]
func (h *ProgressHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	id := dto.BindRequestID(c)

	metrics.ProgressSubscribers.Inc()
	defer metrics.ProgressSubscribers.Dec()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	setSSEHeaders(c)
	first := true
	c.Stream(func(w io.Writer) bool {
		if !first {
			select {
			case <-ctx.Done():
				return false
			case <-ticker.C:
			}
		}
		first = false

		ev, err := h.hub.Next(ctx, id)
		switch {
		case err != nil:
			logger.Warn(ctx, "progress read failed", "request_id", id, "error", err.Error())
			_, _ = io.WriteString(w, "data: keep-alive\n\n")
		case ev.Ready:
			_, _ = fmt.Fprintf(w, "data: %d\n\n", ev.Count)
		case ev.Done:
			_, _ = io.WriteString(w, "data: done\n\n")
			return false
		default:
			_, _ = io.WriteString(w, "data: keep-alive\n\n")
		}
		return true
	})
}
