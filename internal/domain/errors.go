package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrSubmissionInFlight reports a re-entrant payment submit; callers
	// treat it as a no-op rather than a failure.
	ErrSubmissionInFlight = errors.New("submission already in flight")
)

// Validation field groups, used to point the buyer at the form section
// that needs fixing.
const (
	GroupIdentity   = "identity"
	GroupAddress    = "address"
	GroupPostalCode = "postal_code"
	GroupCoupon     = "coupon"
	GroupPayment    = "payment"
)

// ValidationError is a local, pre-network rejection of buyer input.
type ValidationError struct {
	Group string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Group, e.Msg)
}

// Validation builds a ValidationError for a field group.
func Validation(group, msg string) error {
	return &ValidationError{Group: group, Msg: msg}
}

// TransportError wraps a network or non-2xx failure against a remote
// collaborator. It is always surfaced as a retryable message, never fatal.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport wraps err as a TransportError for operation op.
func Transport(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}
