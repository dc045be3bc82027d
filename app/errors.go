package app

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad input detected before any store or provider call.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden is returned when an invoice or flow belongs to another user.
	ErrForbidden = errors.New("resource belongs to another user")
	// ErrInvalidWebhook wraps provider notifications that failed to parse
	// or verify.
	ErrInvalidWebhook = errors.New("invalid webhook")
	// ErrPaymentPending is returned while the provider has not confirmed a
	// charge yet.
	ErrPaymentPending = errors.New("payment not confirmed by the provider yet")
	// ErrPaymentMismatch is returned when the provider's charge differs from
	// what the flow expects.
	ErrPaymentMismatch = errors.New("provider charge does not match the flow")
	// ErrGateway wraps failures talking to the payment provider.
	ErrGateway = errors.New("payment provider unavailable")
)

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// LoadError is the single error reported when the billing view cannot be
// assembled. Partial views are never returned.
type LoadError struct {
	UserID string
	Op     string // invoices, profile or settings
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load billing for %s: %s: %v", e.UserID, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
