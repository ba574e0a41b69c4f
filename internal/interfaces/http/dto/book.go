package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "z-book-ai-api/pkg/errors"
)

// GenerateRequest 生成请求
type GenerateRequest struct {
	Topic     string `json:"topic"`
	Language  string `json:"language"`
	WordCount int    `json:"word_count"`
}

// GenerateResponse 生成响应
type GenerateResponse struct {
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
}

// ChunkEvent 流式生成的分块事件
type ChunkEvent struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
}

// DoneEvent 流式生成的结束事件
type DoneEvent struct {
	WordCount int `json:"word_count"`
}

// DocumentRequest PDF 渲染请求
type DocumentRequest struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

// LinkResponse 已保存 PDF 的位置
type LinkResponse struct {
	Folder   string `json:"folder"`
	Filename string `json:"filename"`
}

// BindGenerateRequest 解析并校验生成请求
func BindGenerateRequest(c *gin.Context) (*GenerateRequest, error) {
	obj, err := bindObject(c)
	if err != nil {
		return nil, err
	}

	for _, field := range []string{"topic", "language", "word_count"} {
		if _, ok := obj[field]; !ok {
			return nil, apperrors.InvalidParam("Missing required field: " + field)
		}
	}

	req := &GenerateRequest{}
	var ok bool
	if req.Topic, ok = nonEmptyString(obj["topic"]); !ok {
		return nil, apperrors.InvalidParam("Field 'topic' must be a non-empty string")
	}
	if req.Language, ok = nonEmptyString(obj["language"]); !ok {
		return nil, apperrors.InvalidParam("Field 'language' must be a non-empty string")
	}
	n, err := ParseWordCount(obj["word_count"])
	if err != nil || n <= 0 {
		return nil, apperrors.InvalidParam("Field 'word_count' must be a positive integer")
	}
	req.WordCount = n
	return req, nil
}

// ParseWordCount 接受整数值的 JSON 数字或数字字符串
func ParseWordCount(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, fmt.Errorf("empty value")
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return strconv.Atoi(strings.TrimSpace(s))
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("not an integer: %s", raw)
	}
	return int(f), nil
}

// BindDocumentRequest 解析并校验 PDF 渲染请求
func BindDocumentRequest(c *gin.Context) (*DocumentRequest, error) {
	obj, err := bindObject(c)
	if err != nil {
		return nil, err
	}

	_, hasContent := obj["content"]
	_, hasTitle := obj["title"]
	if !hasContent || !hasTitle {
		return nil, apperrors.InvalidParam("Missing required fields: 'content' and/or 'title'")
	}

	req := &DocumentRequest{}
	var ok bool
	if req.Content, ok = nonEmptyString(obj["content"]); !ok {
		return nil, apperrors.InvalidParam("Field 'content' must be a non-empty string")
	}
	if req.Title, ok = nonEmptyString(obj["title"]); !ok {
		return nil, apperrors.InvalidParam("Field 'title' must be a non-empty string")
	}
	return req, nil
}
