package waiton

import (
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// Error codes surfaced by the engine. These are the only kinds a caller of
// Run/RunCallback ever observes; a probe that merely hasn't succeeded yet
// is not an error at all; it's logged at debug level and retried.
const (
	KindConfigInvalid = "WAITON_CONFIG_INVALID"
	KindTimeout       = "WAITON_TIMEOUT"
	KindFatalInternal = "WAITON_FATAL_INTERNAL"
)

// Error is the error type returned by Run and RunCallback. It wraps an
// agilira/go-errors coded error so callers can branch on Kind() without
// string-matching messages.
type Error struct {
	inner *goerrors.Error
}

// Kind returns one of the Kind* constants above.
func (e *Error) Kind() string {
	if e == nil || e.inner == nil {
		return ""
	}
	return string(e.inner.Code)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil || e.inner == nil {
		return ""
	}
	return e.inner.Error()
}

// Unwrap exposes the underlying cause, if any, for errors.Is/As chains.
func (e *Error) Unwrap() error {
	if e == nil || e.inner == nil {
		return nil
	}
	return e.inner.Unwrap()
}

func newConfigError(format string, args ...any) *Error {
	return &Error{inner: goerrors.New(KindConfigInvalid, fmt.Sprintf(format, args...))}
}

func newTimeoutError(pending []string) *Error {
	msg := "Timed out waiting for: " + joinComma(pending)
	return &Error{inner: goerrors.New(KindTimeout, msg).WithContext("pending", pending)}
}

func newFatalError(err error) *Error {
	return &Error{inner: goerrors.Wrap(err, KindFatalInternal, "unrecoverable engine failure")}
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// MultiError aggregates independent errors from bulk Manager operations.
type MultiError struct {
	// Errors contains all accumulated errors.
	Errors []error
}

// Error returns a summary of the accumulated errors.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself.
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
