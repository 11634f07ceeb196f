package errors

import "fmt"

const (
	HttpInternalError      = "internal_error"
	HttpInvalidJsonError   = "invalid_json"
	HttpInvalidConfigError = "invalid_datafeed_config"
	HttpDatafeedNotFound   = "datafeed_not_found"
	HttpDuplicateDatafeed  = "duplicate_datafeed"
)

// ErrorResponse is the error response body returned by the HTTP API.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// ConfigError reports invalid or unsupported user-supplied datafeed
// configuration. It is always recoverable: the caller corrects the
// configuration and resubmits.
type ConfigError struct {
	msg string
}

func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return e.msg
}

// InvalidStateError reports an internal-consistency failure: a component
// was invoked on input that prior validation should have ruled out. It
// signals an integration bug, not bad user input, and is never suppressed.
type InvalidStateError struct {
	msg string
}

func NewInvalidStateError(format string, args ...interface{}) *InvalidStateError {
	return &InvalidStateError{msg: fmt.Sprintf(format, args...)}
}

func (e *InvalidStateError) Error() string {
	return e.msg
}
