package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflict is returned when an operation clashes with existing state.
	ErrConflict = errors.New("application: conflict")
	// ErrInvalidCredentials is returned when an email/password pair or token does not authenticate.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned when a disabled account attempts to sign in.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrSessionExpired is returned for sessions past their expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned for sessions that were signed out.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// describedError attaches a user facing message to a sentinel.
type describedError struct {
	kind    error
	message string
}

func (e *describedError) Error() string {
	return fmt.Sprintf("%v: %s", e.kind, e.message)
}

func (e *describedError) Unwrap() error {
	return e.kind
}

func describe(kind error, format string, args ...any) error {
	return &describedError{kind: kind, message: fmt.Sprintf(format, args...)}
}

// Describe attaches a user facing message to kind. The result still matches
// kind with errors.Is and exposes the message through Message.
func Describe(kind error, format string, args ...any) error {
	return describe(kind, format, args...)
}

// Message returns the user facing text attached to err, or an empty string.
func Message(err error) string {
	var described *describedError
	if errors.As(err, &described) {
		return described.message
	}
	return ""
}
