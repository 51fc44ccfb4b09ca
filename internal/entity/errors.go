package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAccessDenied      = errors.New("access denied")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
)

// Error carries a user-facing message and unwraps to one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newErr(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error { return newErr(ErrNotFound, format, args...) }
func InsufficientStock(format string, args ...any) error {
	return newErr(ErrInsufficientStock, format, args...)
}
func InvalidTransition(format string, args ...any) error {
	return newErr(ErrInvalidTransition, format, args...)
}
func AccessDenied(format string, args ...any) error { return newErr(ErrAccessDenied, format, args...) }
func Unauthenticated(format string, args ...any) error {
	return newErr(ErrUnauthenticated, format, args...)
}
func Conflict(format string, args ...any) error { return newErr(ErrConflict, format, args...) }
func Invalid(format string, args ...any) error  { return newErr(ErrInvalidInput, format, args...) }
