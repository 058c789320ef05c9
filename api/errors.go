package api

import (
	"errors"
	"fmt"
)

// AuthError reports an invalid or expired session token. The caller is
// expected to force a logout; there is no retry.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected (status %d)", e.Status)
}

// ValidationError reports a backend-rejected link or submission. Shown
// inline; the debounce cycle re-triggers on edit, so no retry logic.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ServiceUnavailableError is a 503 from service-status or create-ticket:
// the service is closed and the operation is blocked until it reopens.
type ServiceUnavailableError struct {
	Message string
}

func (e *ServiceUnavailableError) Error() string {
	if e.Message == "" {
		return "service is currently closed"
	}
	return e.Message
}

// ConflictError means the user already has an open ticket. Not a hard
// failure: the caller redirects to the existing ticket.
type ConflictError struct {
	ExistingTicketID string
}

func (e *ConflictError) Error() string {
	return "an open ticket already exists: " + e.ExistingTicketID
}

// TransportError wraps a network-level failure.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnexpectedError is any other non-2xx response: surfaced generically,
// logged, operation abandoned.
type UnexpectedError struct {
	Status int
	Body   string
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
