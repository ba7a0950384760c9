package errors

import (
	"errors"
	"fmt"
)

// CustomError represents an application error with metadata
type CustomError struct {
	Code       string      // Machine-readable error code
	Message    string      // Human-readable message
	StatusCode int         // HTTP status code
	Cause      error       // Underlying error
	Details    interface{} // Additional error details
}

// Error implements the error interface
func (e *CustomError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface for wrapping errors
func (e *CustomError) Unwrap() error {
	return e.Cause
}

// Is checks if an error is of a specific type
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewCustomError creates a new custom error
func NewCustomError(code string, message string, statusCode int) *CustomError {
	return &CustomError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithCause returns a copy carrying an underlying error. The predefined
// errors are shared package vars, so mutating them in place would leak
// one request's cause into another's.
func (e *CustomError) WithCause(err error) *CustomError {
	clone := *e
	clone.Cause = err
	return &clone
}

// WithDetails returns a copy carrying additional error details
func (e *CustomError) WithDetails(details interface{}) *CustomError {
	clone := *e
	clone.Details = details
	return &clone
}

// Pre-defined errors
var (
	// Validation errors (400)
	ErrInvalidRequest = NewCustomError(
		"INVALID_REQUEST",
		"Request body is invalid or missing required fields",
		400,
	)

	ErrInvalidURL = NewCustomError(
		"INVALID_URL",
		"The provided URL is invalid or not supported",
		400,
	)

	// Authentication errors (401)
	ErrAuthMissing = NewCustomError(
		"AUTH_MISSING",
		"Required credentials for this platform are missing or unreadable",
		401,
	)

	ErrUnauthorized = NewCustomError(
		"UNAUTHORIZED",
		"A valid API key is required",
		401,
	)

	// Not found errors (404)
	ErrJobNotFound = NewCustomError(
		"JOB_NOT_FOUND",
		"The requested job was not found",
		404,
	)

	// Rate limiting (429)
	ErrRateLimited = NewCustomError(
		"RATE_LIMITED",
		"Too many requests. Please try again later",
		429,
	)

	// Server errors (500)
	ErrInternal = NewCustomError(
		"INTERNAL_ERROR",
		"An internal server error occurred",
		500,
	)

	ErrExtractionFailed = NewCustomError(
		"EXTRACTION_FAILED",
		"Media extraction failed for every format candidate",
		500,
	)

	ErrNoOutput = NewCustomError(
		"NO_OUTPUT",
		"Extractor reported success but produced no output file",
		500,
	)

	ErrReadFailure = NewCustomError(
		"READ_FAILURE",
		"Downloaded file could not be read",
		500,
	)

	ErrQueueFailed = NewCustomError(
		"QUEUE_FAILED",
		"Failed to queue download job",
		500,
	)

	ErrStorageFailed = NewCustomError(
		"STORAGE_FAILED",
		"Storage operation failed",
		500,
	)

	ErrConfigInvalid = NewCustomError(
		"CONFIG_INVALID",
		"Configuration is invalid",
		500,
	)
)

// IsCustomError checks if an error is a CustomError
func IsCustomError(err error) bool {
	var customErr *CustomError
	return errors.As(err, &customErr)
}

// GetStatusCode extracts HTTP status code from an error
func GetStatusCode(err error) int {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.StatusCode
	}
	return 500 // Default to internal server error
}

// GetErrorCode extracts error code from an error
func GetErrorCode(err error) string {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetErrorMessage extracts human-readable message from an error
func GetErrorMessage(err error) string {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Message
	}
	return "An unknown error occurred"
}
