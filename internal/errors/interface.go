package errors

// ErrorCode identifies an error class. Each package declares its own codes
// so failures can be matched without string comparison on messages.
type ErrorCode string

// Error is the error type returned across package boundaries. It carries a
// code, an optional human message, optional structured data and the wrapped
// cause.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory constructs Errors. Packages allocate one with New() and reuse it.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
