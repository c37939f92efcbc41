package lifecycle

import "fmt"

// Error codes.
const (
	ErrCodeUnknownSignal     = "UNKNOWN_SIGNAL"
	ErrCodeConflictingSignal = "CONFLICTING_SIGNAL"
	ErrCodeExecFailed        = "EXEC_FAILED"
	ErrCodePIDFile           = "PIDFILE_FAILED"
)

// Error is a lifecycle failure.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// ExecError reports a failed re-exec. Destinations are already closed when
// it is returned, so the process must exit.
type ExecError struct {
	Path  string
	Cause error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: re-exec %s: %v", ErrCodeExecFailed, e.Path, e.Cause)
}

func (e *ExecError) Unwrap() error {
	return e.Cause
}
