// Package errors provides structured error handling for scout.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors (drivers, config files)
//   - 2XX: Repository errors (record store)
//   - 3XX: Backend errors (search service, bulk transport)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryRepository indicates record repository errors.
	CategoryRepository Category = "REPOSITORY"
	// CategoryBackend indicates search backend errors.
	CategoryBackend Category = "BACKEND"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound      = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid       = "ERR_102_CONFIG_INVALID"
	ErrCodeDriverUnknown       = "ERR_103_DRIVER_UNKNOWN"
	ErrCodeDriverInit          = "ERR_104_DRIVER_INIT"
	ErrCodeRawQueryUnsupported = "ERR_105_RAW_QUERY_UNSUPPORTED"

	// Repository errors (200-299)
	ErrCodeRepositoryFailed = "ERR_201_REPOSITORY_FAILED"
	ErrCodeTableNotFound    = "ERR_202_TABLE_NOT_FOUND"

	// Backend errors (300-399)
	ErrCodeBackendFailed = "ERR_301_BACKEND_FAILED"
	ErrCodeBulkRejected  = "ERR_302_BULK_REJECTED"
	ErrCodeIndexLocked   = "ERR_303_INDEX_LOCKED"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidPage  = "ERR_402_INVALID_PAGE"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeEncodeFailed = "ERR_502_ENCODE_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "1" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryRepository
	case '3':
		return CategoryBackend
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeDriverUnknown, ErrCodeDriverInit, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeIndexLocked:
		return SeverityWarning
	default:
		return SeverityError
	}
}
