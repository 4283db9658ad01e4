package util

import (
	"errors"
	"fmt"
)

// 错误类别，控制器据此映射 HTTP 状态码
var (
	ErrNotFound     = errors.New("resource not found")
	ErrBadRequest   = errors.New("bad request")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// AppError 携带类别、可读信息和结构化细节，客户端可以据此展示具体的修正方式
type AppError struct {
	Kind    error
	Message string
	Details map[string]interface{}
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Kind
}

// WithDetails 追加结构化细节
func (e *AppError) WithDetails(kv map[string]interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, len(kv))
	}
	for k, v := range kv {
		e.Details[k] = v
	}
	return e
}

func newAppError(kind error, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...interface{}) *AppError {
	return newAppError(ErrNotFound, format, args...)
}

func BadRequestError(format string, args ...interface{}) *AppError {
	return newAppError(ErrBadRequest, format, args...)
}

func ForbiddenError(format string, args ...interface{}) *AppError {
	return newAppError(ErrForbidden, format, args...)
}

func ConflictError(format string, args ...interface{}) *AppError {
	return newAppError(ErrConflict, format, args...)
}

// DetailsOf 返回 err 链上 AppError 的细节
func DetailsOf(err error) map[string]interface{} {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}
