package config

import "fmt"

// Error codes for configuration failures.
const (
	ErrCodeParseFailed     = "PARSE_FAILED"
	ErrCodeMissingPort     = "MISSING_PORT"
	ErrCodeInvalidPort     = "INVALID_PORT"
	ErrCodeInvalidLevels   = "INVALID_LEVELS"
	ErrCodeInvalidService  = "INVALID_SERVICE"
	ErrCodeInvalidInterval = "INVALID_INTERVAL"
)

// ConfigError reports a configuration problem that must stop startup.
//
//nolint:revive // the name is part of the daemon's error vocabulary
type ConfigError struct {
	Code    string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error.
func NewConfigError(code, message string, cause error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
