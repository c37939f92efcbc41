package engine

import "fmt"

// Write operations reported by WriteError.
const (
	OpWrite = "write"
	OpSync  = "sync"
)

// WriteError reports a failed write or sync on one destination.
type WriteError struct {
	Op          string
	Destination string
	Pending     int
	Cause       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Destination, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}
