package errors

import (
	"errors"
	"tradeflow/pkg/errors/ecode"
)

// 携带错误码的业务错误，handler层通过DecodeErr还原出code和message

type CodedError struct {
	Code    int
	Message string
	cause   error
}

func (e *CodedError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *CodedError) Unwrap() error { return e.cause }

// New 创建带错误码的错误
func New(code int) *CodedError {
	return &CodedError{Code: code, Message: ecode.Message(code)}
}

// Wrap 包装底层错误并附加错误码
func Wrap(code int, cause error) *CodedError {
	return &CodedError{Code: code, Message: ecode.Message(code), cause: cause}
}

// WithMessage 自定义提示信息
func WithMessage(code int, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// DecodeErr 从error中解出错误码和提示信息
func DecodeErr(err error) (int, string) {
	if err == nil {
		return ecode.Success, ecode.Message(ecode.Success)
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code, ce.Message
	}
	return ecode.InternalErr, err.Error()
}
