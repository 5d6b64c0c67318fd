package irrecoverable

import (
	"errors"
	"fmt"
)

// exception represents an unexpected error. An unexpected error is any error returned
// by a function, other than the error specifically documented as expected in that
// function's interface.
//
// It wraps the original error, so callers can still inspect it, but errors.As on the
// wrapper will not match any of the sentinel errors of the storage layer. The
// only correct way to handle an exception is to crash the component.
type exception struct {
	err error
}

func (e exception) Error() string {
	return e.err.Error()
}

func (e exception) Unwrap() error {
	return e.err
}

// NewException wraps the input error as an exception.
func NewException(err error) error {
	if err == nil {
		return nil
	}
	return exception{err: err}
}

// NewExceptionf is NewException with the ability to add formatting and context to the error.
func NewExceptionf(msg string, args ...any) error {
	return NewException(fmt.Errorf(msg, args...))
}

// IsException returns whether err is, or wraps, an exception.
func IsException(err error) bool {
	var e exception
	return errors.As(err, &e)
}
