// internal/domain/checkout/errors.go
package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned for unknown, expired or foreign sessions
	ErrSessionNotFound = errors.New("checkout session not found")

	// ErrStaleResponse marks a response discarded because a newer request of
	// the same kind was issued after it
	ErrStaleResponse = errors.New("response superseded by a newer request")
)

// ValidationError is a missing precondition detected before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PreconditionError is the name used by the checkout screens for ValidationError
type PreconditionError = ValidationError

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConcurrentOperationError rejects a second order submission while one is in flight
type ConcurrentOperationError struct {
	Operation OperationKind
}

func (e *ConcurrentOperationError) Error() string {
	return fmt.Sprintf("%s already in progress", e.Operation)
}

// PromoRejectedError is a promo code the backend refused for this order
type PromoRejectedError struct {
	Code   string
	Reason string
}

func (e *PromoRejectedError) Error() string {
	return e.Reason
}
