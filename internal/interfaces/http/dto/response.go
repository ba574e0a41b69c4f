// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"github.com/gin-gonic/gin"

	apperrors "z-book-ai-api/pkg/errors"
)

// ErrorResponse 错误响应结构
// Error 与 Message 相同，兼容只读取 error 字段的调用方
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// AppError 按应用错误码返回错误响应
func AppError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = apperrors.StatusOf(appErr.Code)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    status,
		Message: appErr.Message,
		Error:   appErr.Message,
		Detail:  appErr.Detail,
		TraceID: c.GetString("trace_id"),
	})
}

// Unauthorized 401
func Unauthorized(c *gin.Context, message string) {
	AppError(c, apperrors.New(apperrors.CodeUnauthorized, message))
}

// TooManyRequests 429
func TooManyRequests(c *gin.Context, message string) {
	AppError(c, apperrors.New(apperrors.CodeTooManyRequests, message))
}

// InternalError 500
func InternalError(c *gin.Context, message string) {
	AppError(c, apperrors.New(apperrors.CodeInternalError, message))
}
