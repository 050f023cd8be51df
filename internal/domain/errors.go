package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrUnknownOrder       = errors.New("unknown_order")
	ErrOrderNotFound      = errors.New("order_not_found")
	ErrInstrumentNotFound = errors.New("instrument_not_found")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
