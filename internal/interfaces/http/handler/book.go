// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"z-book-ai-api/internal/application/book"
	"z-book-ai-api/internal/interfaces/http/dto"
	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
)

// BookGenerator 整书生成
type BookGenerator interface {
	GenerateBook(ctx context.Context, req book.Request, onChunk book.OnChunk) (*book.Result, error)
}

// BookHandler 书稿生成处理器
type BookHandler struct {
	books BookGenerator
}

// NewBookHandler 创建书稿生成处理器
func NewBookHandler(books BookGenerator) *BookHandler {
	return &BookHandler{books: books}
}

func toBookRequest(c *gin.Context, req *dto.GenerateRequest) book.Request {
	return book.Request{
		ID:              c.GetString("request_id"),
		Topic:           req.Topic,
		Language:        req.Language,
		TargetWordCount: req.WordCount,
	}
}

// Generate 同步生成整书
// @Summary 生成书稿
// @Description 分批调用模型生成不少于目标词数的书稿，进度可通过 /progress?request_id= 订阅
// @Tags Books
// @Accept json
// @Produce json
// @Param request body dto.GenerateRequest true "生成参数"
// @Success 200 {object} dto.GenerateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /generate [post]
func (h *BookHandler) Generate(c *gin.Context) {
	req, err := dto.BindGenerateRequest(c)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	ctx := c.Request.Context()
	res, err := h.books.GenerateBook(ctx, toBookRequest(c, req), nil)
	if err != nil {
		logger.Error(ctx, "book generation failed", err, "topic", req.Topic)
		dto.AppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.GenerateResponse{
		Content:   res.Content,
		WordCount: res.WordCount,
	})
}

type sseEvent struct {
	name string
	data any
}

// GenerateStream 以 SSE 逐块返回书稿
// @Summary 流式生成书稿
// @Description 每个分块追加后推送 chunk 事件，完成时推送 done，失败时推送 error
// @Tags Books
// @Accept json
// @Produce text/event-stream
// @Param request body dto.GenerateRequest true "生成参数"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /generate/stream [post]
func (h *BookHandler) GenerateStream(c *gin.Context) {
	req, err := dto.BindGenerateRequest(c)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	ctx := c.Request.Context()
	events := make(chan sseEvent, 8)
	send := func(ev sseEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(events)
		res, err := h.books.GenerateBook(ctx, toBookRequest(c, req), func(ev book.ChunkEvent) {
			send(sseEvent{name: "chunk", data: dto.ChunkEvent{
				Index:     ev.Index,
				Text:      ev.Text,
				WordCount: ev.WordCount,
			}})
		})
		if err != nil {
			logger.Error(ctx, "streamed book generation failed", err, "topic", req.Topic)
			send(sseEvent{name: "error", data: gin.H{"message": apperrors.AsAppError(err).Message}})
			return
		}
		send(sseEvent{name: "done", data: dto.DoneEvent{WordCount: res.WordCount}})
	}()

	setSSEHeaders(c)
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.name, ev.data)
			return ev.name == "chunk"
		case <-ctx.Done():
			return false
		}
	})
}
