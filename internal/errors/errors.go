package errors

import (
	stderrors "errors"
	"fmt"
)

// ScoutError is the structured error type for scout.
// It carries enough context for logging, CLI output and errors.Is checks.
type ScoutError struct {
	// Code is the unique error code (e.g., "ERR_103_DRIVER_UNKNOWN").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Backend, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *ScoutError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ScoutError) Unwrap() error {
	return e.Cause
}

// Is matches another ScoutError by code.
func (e *ScoutError) Is(target error) bool {
	if t, ok := target.(*ScoutError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *ScoutError) WithDetail(key, value string) *ScoutError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *ScoutError) WithSuggestion(suggestion string) *ScoutError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ScoutError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *ScoutError {
	return &ScoutError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a ScoutError from an existing error, reusing its message.
func Wrap(code string, err error) *ScoutError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is checks against a whole code.
var (
	ErrDriverUnknown       = New(ErrCodeDriverUnknown, "unknown search driver", nil)
	ErrDriverInit          = New(ErrCodeDriverInit, "search driver failed to start", nil)
	ErrRawQueryUnsupported = New(ErrCodeRawQueryUnsupported, "raw query not supported by driver", nil)
	ErrBackendFailed       = New(ErrCodeBackendFailed, "search backend request failed", nil)
	ErrBulkRejected        = New(ErrCodeBulkRejected, "bulk request rejected", nil)
	ErrIndexLocked         = New(ErrCodeIndexLocked, "index locked by another process", nil)
	ErrRepositoryFailed    = New(ErrCodeRepositoryFailed, "record repository failed", nil)
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *ScoutError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// DriverError creates an error for a driver that is unknown or could not
// be constructed.
func DriverError(code, driver string, cause error) *ScoutError {
	msg := fmt.Sprintf("search driver %q failed to start", driver)
	if code == ErrCodeDriverUnknown {
		msg = fmt.Sprintf("unknown search driver %q", driver)
	}
	return New(code, msg, cause).WithDetail("driver", driver)
}

// BackendError wraps a failure reported by a search backend. The cause is
// kept unmodified so callers can inspect the client's own error.
func BackendError(message string, cause error) *ScoutError {
	return New(ErrCodeBackendFailed, message, cause)
}

// RepositoryError wraps a record repository failure.
func RepositoryError(message string, cause error) *ScoutError {
	return New(ErrCodeRepositoryFailed, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *ScoutError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *ScoutError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first ScoutError in err's chain.
func As(err error) (*ScoutError, bool) {
	var se *ScoutError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return GetCategory(err) == CategoryConfig
}

// IsBackend reports whether err is a search backend error.
func IsBackend(err error) bool {
	return GetCategory(err) == CategoryBackend
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	se, ok := As(err)
	return ok && se.Severity == SeverityFatal
}

// GetCode extracts the error code. Returns empty string if err carries none.
func GetCode(err error) string {
	if se, ok := As(err); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category. Returns empty string if err carries none.
func GetCategory(err error) Category {
	if se, ok := As(err); ok {
		return se.Category
	}
	return ""
}
