// internal/pkg/errs/errs.go
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation policy decisions.
type Kind int

const (
	// KindValidation marks bad input rejected before any write.
	KindValidation Kind = iota + 1
	// KindConflict marks a duplicate that the business layer treats as
	// "already done" rather than a failure.
	KindConflict
	// KindExternal marks an external dependency failure (producer API,
	// mail provider) that is retryable.
	KindExternal
	// KindIntegrity marks a financial-data integrity violation. Fatal for
	// the enclosing transaction, never swallowed.
	KindIntegrity
)

// Error is a classified application error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation creates a validation error.
func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// External wraps an external dependency failure.
func External(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindExternal, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Integrity creates an integrity error.
func Integrity(format string, args ...interface{}) error {
	return &Error{Kind: KindIntegrity, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or 0 if err is not a classified error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return 0
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsExternal reports whether err is an external dependency error.
func IsExternal(err error) bool { return KindOf(err) == KindExternal }

// IsIntegrity reports whether err is an integrity error.
func IsIntegrity(err error) bool { return KindOf(err) == KindIntegrity }
