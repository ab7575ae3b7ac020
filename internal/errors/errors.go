package errors

import (
	"errors"
	"fmt"
)

// Re-exported so callers never need a second errors import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

type appError struct {
	code    ErrorCode
	message string
	err     error
	data    any
}

func (e *appError) Error() string {
	msg := e.message
	if msg == "" {
		msg = GetErrorMessage(e.code)
	}

	switch {
	case e.data != nil:
		return fmt.Sprintf("%s: %v", msg, e.data)
	case e.err != nil:
		return fmt.Sprintf("%s: %v", msg, e.err)
	default:
		return msg
	}
}

func (e *appError) Code() ErrorCode {
	return e.code
}

// WithMessage and WithData copy rather than mutate so a shared Error value
// never changes under a caller.
func (e *appError) WithMessage(msg string) Error {
	clone := *e
	clone.message = msg
	return &clone
}

func (e *appError) WithData(data any) Error {
	clone := *e
	clone.data = data
	return &clone
}

func (e *appError) GetData() any {
	return e.data
}

func (e *appError) Unwrap() error {
	return e.err
}

type defaultFactory struct{}

func (*defaultFactory) New(code ErrorCode) Error {
	return &appError{code: code}
}

func (*defaultFactory) Wrap(code ErrorCode, err error) Error {
	return &appError{code: code, err: err}
}

func (*defaultFactory) WithMessage(code ErrorCode, msg string) Error {
	return &appError{code: code, message: msg}
}

func (*defaultFactory) WithData(code ErrorCode, data any) Error {
	return &appError{code: code, data: data}
}

// New creates a Factory. The factory is stateless; packages typically
// allocate one per call site or hold one in a package variable.
func New() Factory {
	return &defaultFactory{}
}

// CodeOf extracts the ErrorCode from an error, or an empty code when the
// error was not created by this package.
func CodeOf(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code()
	}
	return ""
}

// AsError unwraps err to the nearest Error in its chain.
func AsError(err error) (Error, bool) {
	var e Error
	ok := errors.As(err, &e)
	return e, ok
}
