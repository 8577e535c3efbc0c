package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// BusinessError is a terminal, user-facing failure reported by the remote
// service or raised locally. It is surfaced immediately and never retried.
type BusinessError struct {
	Message string
}

func NewBusinessError(msg string) error {
	return &BusinessError{Message: msg}
}

func (err *BusinessError) Error() string { return err.Message }

// IsBusiness reports whether err is (or wraps) a BusinessError.
func IsBusiness(err error) bool {
	_, ok := errors.Cause(err).(*BusinessError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s *shutdown) Error() string { return s.message }

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
