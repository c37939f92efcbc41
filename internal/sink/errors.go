package sink

import "fmt"

// Error codes for destination failures.
const (
	ErrCodeUnknownType    = "UNKNOWN_TYPE"
	ErrCodeOpenFailed     = "OPEN_FAILED"
	ErrCodeInvalidOptions = "INVALID_OPTIONS"
	ErrCodeReopenFailed   = "REOPEN_FAILED"
	ErrCodeInvalidTarget  = "INVALID_TARGET"
)

// DestinationError reports a sink that could not be resolved or reopened.
type DestinationError struct {
	Code   string
	Type   string
	Target string
	Cause  error
}

func (e *DestinationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s sink %q: %v", e.Code, e.Type, e.Target, e.Cause)
	}
	return fmt.Sprintf("%s: %s sink %q", e.Code, e.Type, e.Target)
}

func (e *DestinationError) Unwrap() error {
	return e.Cause
}

func newDestinationError(code, sinkType, target string, cause error) *DestinationError {
	return &DestinationError{
		Code:   code,
		Type:   sinkType,
		Target: target,
		Cause:  cause,
	}
}
