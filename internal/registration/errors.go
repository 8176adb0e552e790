package registration

import (
	"errors"
	"fmt"
)

var (
	ErrRegistrationClosed  = errors.New("registration is closed")
	ErrDuplicateMobile     = errors.New("mobile number is already registered")
	ErrNotFound            = errors.New("registration not found")
	ErrAllocationExhausted = errors.New("registration id allocation exhausted")
	ErrUnrecognizedScan    = errors.New("scanned code is not a registration ticket")
)

// ValidationError is a client-fixable problem with submitted input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
