package resilience

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors for the resilience package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, resilience.ErrCircuitOpen) {
//	    // back off, the breaker refused the call
//	}
var (
	// ErrCircuitOpen is returned (wrapped in *OpenError) when a breaker
	// rejects a call without invoking the operation.
	ErrCircuitOpen = errors.New("resilience: circuit open")

	// ErrTimeout is returned when the wrapped operation did not settle
	// within the breaker's per-call timeout. The operation itself is not
	// aborted; its eventual result is discarded.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// OpenError reports a call rejected by an OPEN breaker.
// It unwraps to ErrCircuitOpen and carries the scheduled retry time.
type OpenError struct {
	// Name identifies the breaker (e.g. "api" or a device ID).
	Name string

	// RetryAt is the earliest time the breaker will allow another attempt.
	RetryAt time.Time
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("resilience: circuit %q open, retry at %s", e.Name, e.RetryAt.Format(time.RFC3339))
}

// Unwrap allows errors.Is(err, ErrCircuitOpen).
func (e *OpenError) Unwrap() error {
	return ErrCircuitOpen
}
