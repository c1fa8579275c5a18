package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable class of a game error.
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindNotFound          ErrorKind = "NotFoundError"
	KindCapacity          ErrorKind = "CapacityError"
	KindIncompletePlayers ErrorKind = "IncompletePlayersError"
	KindAuthorization     ErrorKind = "AuthorizationError"
	KindNotReady          ErrorKind = "NotReadyError"
	KindInvalidState      ErrorKind = "InvalidStateError"
	KindGameInProgress    ErrorKind = "GameInProgressError"
)

// Error is returned by every room and game operation that the caller can act on.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds an *Error with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Kind sentinels for errors.Is.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrCapacity          = &Error{Kind: KindCapacity}
	ErrIncompletePlayers = &Error{Kind: KindIncompletePlayers}
	ErrAuthorization     = &Error{Kind: KindAuthorization}
	ErrNotReady          = &Error{Kind: KindNotReady}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrGameInProgress    = &Error{Kind: KindGameInProgress}
)

// KindOf returns the kind of err, or "" if err is not a game error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
