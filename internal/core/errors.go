package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNoRoute           = errors.New("conversion unavailable")
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrNotFound          = errors.New("resource not found")
	ErrDuplicate         = errors.New("resource already exists")
)

// ValidationError reports malformed input. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NoRouteError means neither a direct nor a hub-mediated rate exists.
type NoRouteError struct {
	From CurrencyCode
	To   CurrencyCode
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("no rate from %s to %s: %s", e.From, e.To, ErrNoRoute)
}

func (e *NoRouteError) Is(target error) bool { return target == ErrNoRoute }

// RemoteUnavailableError wraps a network failure or a 5xx answer from a
// remote service. StatusCode is zero for transport errors.
type RemoteUnavailableError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteUnavailableError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: remote returned status %d: %v", e.Op, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("%s: remote returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error { return e.Err }

func (e *RemoteUnavailableError) Is(target error) bool { return target == ErrRemoteUnavailable }
