// Package errors 提供带错误码的应用错误
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码
type ErrorCode string

// StatusClientClosedRequest 客户端主动断开（非标准状态码）
const StatusClientClosedRequest = 499

const (
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"
	CodeCanceled           ErrorCode = "1009"

	CodeFileNotFound ErrorCode = "3004"

	CodeLLMCallFailed ErrorCode = "4005"
	CodeRenderFailed  ErrorCode = "4007"

	CodeStorageError ErrorCode = "5004"
)

// 未列出的错误码一律 500
var httpStatus = map[ErrorCode]int{
	CodeInvalidParam:       http.StatusBadRequest,
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeFileNotFound:       http.StatusNotFound,
	CodeTooManyRequests:    http.StatusTooManyRequests,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
	CodeLLMCallFailed:      http.StatusBadGateway,
	CodeCanceled:           StatusClientClosedRequest,
}

// StatusOf 错误码对应的 HTTP 状态
func StatusOf(code ErrorCode) int {
	if s, ok := httpStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// AppError 应用错误，Message 会原样返回给调用方
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail 返回带 Detail 的副本，共享的哨兵错误不受影响
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithCause 返回以 err 为底层错误的副本
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建应用错误
func New(code ErrorCode, message string) *AppError {
	return Wrap(nil, code, message)
}

// Wrap 用错误码包装底层错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: StatusOf(code), Err: err}
}

// InvalidParam 参数错误
func InvalidParam(message string) *AppError {
	return New(CodeInvalidParam, message)
}

var (
	ErrFileNotFound  = New(CodeFileNotFound, "file not found")
	ErrLLMCallFailed = New(CodeLLMCallFailed, "LLM call failed")
)

// AsAppError 取出错误链中的 AppError；上下文取消与超时分别归为 499 和 503
func AsAppError(err error) *AppError {
	var appErr *AppError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.Is(err, context.Canceled):
		return Wrap(err, CodeCanceled, "request canceled")
	case stderrors.Is(err, context.DeadlineExceeded):
		return Wrap(err, CodeServiceUnavailable, "request timed out")
	default:
		return Wrap(err, CodeUnknown, "unknown error")
	}
}
