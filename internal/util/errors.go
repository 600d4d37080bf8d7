package util

import (
	"errors"
	"fmt"
)

// 错误类别，使用 errors.Is 判断
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidState       = errors.New("invalid state")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAlreadyExists      = errors.New("already exists")
)

// AppError 带上下文的业务错误，Details 会原样返回给前端用于提示用户
type AppError struct {
	Op      string
	Kind    error
	Message string
	Details map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Kind
}

func NewError(op string, kind error, message string) *AppError {
	return &AppError{Op: op, Kind: kind, Message: message}
}

// WithDetail 追加上下文字段
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func NotFoundError(op, message string) *AppError {
	return NewError(op, ErrNotFound, message)
}

func ForbiddenError(op, message string) *AppError {
	return NewError(op, ErrForbidden, message)
}

func InvalidStateError(op, message string) *AppError {
	return NewError(op, ErrInvalidState, message)
}

func InvalidInputError(op, message string) *AppError {
	return NewError(op, ErrInvalidInput, message)
}
