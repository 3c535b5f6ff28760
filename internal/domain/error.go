package domain

import (
	"errors"
	"fmt"
)

const (
	ErrCodeConfigInvalid       = "config_invalid"
	ErrCodeInputMissing        = "input_missing"
	ErrCodeInputInvalid        = "input_invalid"
	ErrCodeLoaderAnchorMissing = "loader_anchor_missing"
	ErrCodeRenderInvalid       = "render_invalid"
	ErrCodeOutputWriteFailed   = "output_write_failed"
)

// Error 是构建阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s：%q：%v", e.Code, e.Path, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s：%q", e.Code, e.Path)
	case e.Err != nil:
		return fmt.Sprintf("%s：%v", e.Code, e.Err)
	default:
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInputError 判断 err 是否属于输入缺失/格式错误（致命，不产生任何输出）。
func IsInputError(err error) bool {
	switch Code(err) {
	case ErrCodeInputMissing, ErrCodeInputInvalid:
		return true
	}
	return false
}
