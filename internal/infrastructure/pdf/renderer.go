// Package pdf 将纯文本书稿排版为分页 PDF
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding/charmap"

	"z-book-ai-api/pkg/metrics"
	"z-book-ai-api/pkg/tracer"
)

// BlockKind 版面块类型
type BlockKind int

const (
	BlockTitle BlockKind = iota
	BlockHeading
	BlockParagraph
)

// Block 一个版面块
type Block struct {
	Kind BlockKind
	Text string
}

const (
	fontFamily = "Helvetica"

	marginSide   = 72.0
	marginTop    = 72.0
	marginBottom = 18.0

	titleSize     = 18.0
	titleLeading  = 22.0
	headingSize   = 18.0
	headingLead   = 22.0
	bodySize      = 12.0
	bodyLeading   = 14.4
	spaceAfter    = 12.0
	sectionSpacer = 24.0
)

// Layout 将正文切分为版面块
// 去空白后以 "Chapter" 开头的行是居中标题，其余非空行是两端对齐段落
func Layout(title, content string) []Block {
	blocks := []Block{{Kind: BlockTitle, Text: title}}
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "Chapter"):
			blocks = append(blocks, Block{Kind: BlockHeading, Text: trimmed})
		default:
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: line})
		}
	}
	return blocks
}

// Options 渲染选项
type Options struct {
	// PageSize gofpdf 页面尺寸名，默认 Letter
	PageSize string
	// Compress 是否压缩页面内容流
	Compress bool
}

// Renderer PDF 渲染器
type Renderer struct {
	opts Options
}

// NewRenderer 创建渲染器
func NewRenderer(opts Options) *Renderer {
	if opts.PageSize == "" {
		opts.PageSize = "Letter"
	}
	return &Renderer{opts: opts}
}

// Render 渲染标题与正文，返回完整 PDF 字节
func (r *Renderer) Render(ctx context.Context, title, content string) ([]byte, error) {
	_, span := tracer.Start(ctx, "pdf.Render",
		trace.WithAttributes(attribute.Int("pdf.content_bytes", len(content))))
	defer span.End()

	data, err := r.render(Layout(title, content))
	if err != nil {
		span.RecordError(err)
		metrics.PDFRenderTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.PDFRenderTotal.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.Int("pdf.bytes", len(data)))
	return data, nil
}

func (r *Renderer) render(blocks []Block) ([]byte, error) {
	doc := gofpdf.New("P", "pt", r.opts.PageSize, "")
	doc.SetCompression(r.opts.Compress)
	doc.SetMargins(marginSide, marginTop, marginSide)
	doc.SetAutoPageBreak(true, marginBottom)
	doc.SetCreator("z-book-ai-api", false)
	doc.AddPage()

	for _, b := range blocks {
		text := encode(b.Text)
		switch b.Kind {
		case BlockTitle:
			doc.SetTitle(b.Text, true)
			doc.SetFont(fontFamily, "B", titleSize)
			doc.MultiCell(0, titleLeading, text, "", "C", false)
			doc.Ln(sectionSpacer)
		case BlockHeading:
			doc.Ln(sectionSpacer)
			doc.SetFont(fontFamily, "", headingSize)
			doc.MultiCell(0, headingLead, text, "", "C", false)
			doc.Ln(spaceAfter)
		default:
			doc.SetFont(fontFamily, "", bodySize)
			doc.MultiCell(0, bodyLeading, text, "", "J", false)
			doc.Ln(spaceAfter)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// encode 将文本转为内置字体使用的 Windows-1252 编码，无法表示的字符替换为 '?'
func encode(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch r {
		case '\t':
			out = append(out, ' ')
			continue
		case '\r':
			continue
		}
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return string(out)
}
