package dto

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "z-book-ai-api/pkg/errors"
)

const errBodyNotJSON = "Request body must be JSON"

// bindObject 读取请求体为 JSON 对象
func bindObject(c *gin.Context) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := c.ShouldBindJSON(&obj); err != nil || obj == nil {
		return nil, apperrors.InvalidParam(errBodyNotJSON)
	}
	return obj, nil
}

// nonEmptyString 取出非空字符串字段，保留原值
func nonEmptyString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// BindRequestID 读取进度订阅的请求 ID
func BindRequestID(c *gin.Context) string {
	return strings.TrimSpace(c.Query("request_id"))
}
