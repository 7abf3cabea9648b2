package analyzer

import "fmt"

// ValidationError indicates bad input rejected before any attempt was
// made. No network calls happen before it is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ExhaustionError is returned when every attempt in the retry budget
// failed. It carries the number of attempts made and the last error
// observed.
type ExhaustionError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("analysis failed after %d attempts, last error: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustionError) Unwrap() error {
	return e.LastErr
}
