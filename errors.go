package toolcrib

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrInvalidInput indicates malformed or missing request fields.
	ErrInvalidInput = errors.New("toolcrib: invalid input")

	// Hardware set errors
	ErrSetNotFound              = errors.New("toolcrib: hardware set not found")
	ErrSetExists                = errors.New("toolcrib: hardware set already exists")
	ErrInsufficientAvailability = errors.New("toolcrib: not enough units available")
	ErrAvailabilityRange        = errors.New("toolcrib: availability out of range")

	// Holding errors
	ErrHoldingRange     = errors.New("toolcrib: check-in exceeds checked-out quantity")
	ErrCapacityExceeded = errors.New("toolcrib: check-in exceeds capacity")

	// ErrOperationFailed indicates an underlying store write failed, possibly
	// after a prior dependent write had already succeeded.
	ErrOperationFailed = errors.New("toolcrib: store operation failed")
)

// ValidationError reports a validation failure for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("toolcrib: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSetNotFound)
}

// IsInvalidRange returns true if the error is a range violation: a check-in
// larger than the project's holding, a check-in that would exceed capacity,
// or an availability adjustment outside [0, capacity].
func IsInvalidRange(err error) bool {
	return errors.Is(err, ErrHoldingRange) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrAvailabilityRange)
}

// IsUnavailable returns true if the error means the requested quantity
// cannot currently be satisfied.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrInsufficientAvailability)
}
