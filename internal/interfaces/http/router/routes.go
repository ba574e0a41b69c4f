package router

import "github.com/gin-gonic/gin"

// RegisterBookRoutes 注册需要鉴权的书稿与文档路由
func RegisterBookRoutes(g *gin.RouterGroup, h Handlers) {
	g.POST("/generate", h.Book.Generate)
	g.POST("/generate/stream", h.Book.GenerateStream)

	g.POST("/download-pdfx", h.Document.DownloadPDF)
	g.POST("/link-pdf", h.Document.LinkPDF)
	g.GET("/files/:filename", h.Document.GetFile)
}
