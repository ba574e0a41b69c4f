package handler

import (
	"context"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"z-book-ai-api/internal/infrastructure/storage"
	"z-book-ai-api/internal/interfaces/http/dto"
	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
)

// Renderer PDF 渲染
type Renderer interface {
	Render(ctx context.Context, title, content string) ([]byte, error)
}

// DocumentStore PDF 文件存储
type DocumentStore interface {
	Save(ctx context.Context, clientIP string, data []byte) (storage.Locator, error)
	Open(name string) (string, error)
}

// DocumentHandler PDF 渲染与下载处理器
type DocumentHandler struct {
	renderer Renderer
	store    DocumentStore
}

// NewDocumentHandler 创建 PDF 处理器
func NewDocumentHandler(renderer Renderer, store DocumentStore) *DocumentHandler {
	return &DocumentHandler{renderer: renderer, store: store}
}

// renderAndSave 渲染并保存，出错时已写出响应
func (h *DocumentHandler) renderAndSave(c *gin.Context) ([]byte, *dto.DocumentRequest, storage.Locator, bool) {
	req, err := dto.BindDocumentRequest(c)
	if err != nil {
		dto.AppError(c, err)
		return nil, nil, storage.Locator{}, false
	}

	ctx := c.Request.Context()
	data, err := h.renderer.Render(ctx, req.Title, req.Content)
	if err != nil {
		logger.Error(ctx, "pdf render failed", err, "title", req.Title)
		dto.AppError(c, apperrors.Wrap(err, apperrors.CodeRenderFailed, err.Error()))
		return nil, nil, storage.Locator{}, false
	}

	loc, err := h.store.Save(ctx, c.ClientIP(), data)
	if err != nil {
		logger.Error(ctx, "pdf save failed", err, "title", req.Title)
		dto.AppError(c, err)
		return nil, nil, storage.Locator{}, false
	}
	return data, req, loc, true
}

// DownloadPDF 渲染并保存 PDF，以附件返回
// @Summary 下载 PDF
// @Tags Documents
// @Accept json
// @Produce application/pdf
// @Param request body dto.DocumentRequest true "标题与正文"
// @Success 200 {file} file
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /download-pdfx [post]
func (h *DocumentHandler) DownloadPDF(c *gin.Context) {
	data, req, _, ok := h.renderAndSave(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": req.Title + ".pdf",
	}))
	c.Data(http.StatusOK, "application/pdf", data)
}

// LinkPDF 渲染并保存 PDF，返回文件位置
// @Summary 生成 PDF 链接
// @Tags Documents
// @Accept json
// @Produce json
// @Param request body dto.DocumentRequest true "标题与正文"
// @Success 200 {object} dto.LinkResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /link-pdf [post]
func (h *DocumentHandler) LinkPDF(c *gin.Context) {
	_, _, loc, ok := h.renderAndSave(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.LinkResponse{
		Folder:   loc.Folder,
		Filename: loc.Filename,
	})
}

// GetFile 按文件名下载已保存的 PDF
// @Summary 获取已保存 PDF
// @Tags Documents
// @Produce application/pdf
// @Param filename path string true "文件名"
// @Success 200 {file} file
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /files/{filename} [get]
func (h *DocumentHandler) GetFile(c *gin.Context) {
	name := c.Param("filename")
	path, err := h.store.Open(name)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	c.FileAttachment(path, name)
}
