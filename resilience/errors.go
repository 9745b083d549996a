package resilience

import "errors"

var (
	// ErrCircuitOpen is returned without running the operation while a
	// breaker is open or its half-open trials are used up.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrMaxRetriesExceeded wraps the last attempt's error.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrTimeout is both the error Execute returns and the cause the
	// abandoned attempt observes on its context.
	ErrTimeout = errors.New("resilience: operation timed out")
)
