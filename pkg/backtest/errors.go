package backtest

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error code for backtest operations
type ErrorCode string

const (
	// ErrInvalidInput is returned when the series or alpha cannot form a valid backtest
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrExportFailed is returned when a chart cannot be written
	ErrExportFailed ErrorCode = "EXPORT_FAILED"
)

// ErrorCategory groups related error codes
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "VALIDATION"
	CategoryExport     ErrorCategory = "EXPORT"
	CategoryUnknown    ErrorCategory = "UNKNOWN"
)

// ErrorDetails contains specific information about the error
type ErrorDetails struct {
	Operation    string                 `json:"operation"`
	ActualData   map[string]interface{} `json:"actual_data,omitempty"`
	ExpectedData map[string]interface{} `json:"expected_data,omitempty"`
	Constraints  map[string]interface{} `json:"constraints,omitempty"`
}

// BacktestError is the error type returned by every fallible backtest operation
type BacktestError struct {
	Code     ErrorCode     `json:"code"`
	Message  string        `json:"message"`
	Category ErrorCategory `json:"category"`
	Details  ErrorDetails  `json:"details"`
	Cause    error         `json:"-"`
}

// NewBacktestError creates a new BacktestError with its category resolved from the code
func NewBacktestError(code ErrorCode, message string, operation string) *BacktestError {
	return &BacktestError{
		Code:     code,
		Message:  message,
		Category: determineCategory(code),
		Details: ErrorDetails{
			Operation: operation,
		},
	}
}

// Error implements the error interface
func (be *BacktestError) Error() string {
	if be.Cause != nil {
		return fmt.Sprintf("%s: %s (operation: %s): %v", be.Code, be.Message, be.Details.Operation, be.Cause)
	}
	return fmt.Sprintf("%s: %s (operation: %s)", be.Code, be.Message, be.Details.Operation)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As
func (be *BacktestError) Unwrap() error {
	return be.Cause
}

// WithDetails records an observed value
func (be *BacktestError) WithDetails(key string, value interface{}) *BacktestError {
	if be.Details.ActualData == nil {
		be.Details.ActualData = make(map[string]interface{})
	}
	be.Details.ActualData[key] = value
	return be
}

// WithExpected records the value that was expected
func (be *BacktestError) WithExpected(key string, value interface{}) *BacktestError {
	if be.Details.ExpectedData == nil {
		be.Details.ExpectedData = make(map[string]interface{})
	}
	be.Details.ExpectedData[key] = value
	return be
}

// WithConstraint records the violated constraint
func (be *BacktestError) WithConstraint(key string, value interface{}) *BacktestError {
	if be.Details.Constraints == nil {
		be.Details.Constraints = make(map[string]interface{})
	}
	be.Details.Constraints[key] = value
	return be
}

// WithCause wraps an underlying error
func (be *BacktestError) WithCause(cause error) *BacktestError {
	be.Cause = cause
	return be
}

// IsErrorCode reports whether any error in err's chain is a BacktestError with the given code
func IsErrorCode(err error, code ErrorCode) bool {
	var be *BacktestError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

func determineCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrInvalidInput:
		return CategoryValidation
	case ErrExportFailed:
		return CategoryExport
	default:
		return CategoryUnknown
	}
}

// Convenience constructors

func newLengthMismatchError(operation, field string, expected, actual int) *BacktestError {
	return NewBacktestError(ErrInvalidInput,
		fmt.Sprintf("%s length does not match actual series", field), operation).
		WithExpected(field+"_length", expected).
		WithDetails(field+"_length", actual).
		WithConstraint("aligned", "len(actual) == len(forecast) == len(index)")
}

func newInvalidAlphaError(operation string, alpha float64) *BacktestError {
	return NewBacktestError(ErrInvalidInput, "alpha must lie strictly between 0 and 1", operation).
		WithDetails("alpha", alpha).
		WithConstraint("valid_range", "0 < alpha < 1")
}

func newExportError(operation, fileName string, cause error) *BacktestError {
	return NewBacktestError(ErrExportFailed, "could not export chart", operation).
		WithDetails("file_name", fileName).
		WithCause(cause)
}
