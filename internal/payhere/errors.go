package payhere

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrUnsupportedCurrency   = errors.New("unsupported currency")
	ErrMissingCredentials    = errors.New("merchant id and secret are required")
	ErrUntrustedNotification = errors.New("untrusted notification: signature mismatch")
)

// ValidationError reports which input field was rejected before signing.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
