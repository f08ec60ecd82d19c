package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Client errors
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeForbidden  ErrorType = "FORBIDDEN"
	ErrorTypeRateLimit  ErrorType = "RATE_LIMIT"

	// Server errors
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeDatabase    ErrorType = "DATABASE"
	ErrorTypeExternal    ErrorType = "EXTERNAL"
)

// Error codes carried by sync engine failures. They travel to clients inside
// warning and error events so a client can react without parsing messages.
const (
	CodeAuthorizationDenied = "AUTHORIZATION_DENIED"
	CodeNotAuthenticated    = "NOT_AUTHENTICATED"
	CodeMalformedInput      = "MALFORMED_INPUT"
	CodeMissingFields       = "MISSING_FIELDS"
	CodeUnknownAction       = "UNKNOWN_ACTION"
	CodeProjectNotFound     = "PROJECT_NOT_FOUND"
	CodeSnapshotNotFound    = "SNAPSHOT_NOT_FOUND"
	CodePersistenceFailure  = "PERSISTENCE_FAILURE"
	CodeRateLimited         = "RATE_LIMITED"
)

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

func newAppError(errType ErrorType, status int, message string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: status,
		StackTrace: captureStackTrace(),
	}
}

// captureStackTrace records the caller of the exported constructor
func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(4, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var stack strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&stack, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return stack.String()
}

// Sync engine errors

// NewAuthorizationDenied is returned when a connection may not mutate a diagram.
func NewAuthorizationDenied(message string) *AppError {
	return newAppError(ErrorTypeForbidden, http.StatusForbidden, message).WithCode(CodeAuthorizationDenied)
}

// NewNotAuthenticated is returned for events arriving on a connection that has
// not joined the room it targets.
func NewNotAuthenticated() *AppError {
	return newAppError(ErrorTypeForbidden, http.StatusForbidden, "not authenticated").WithCode(CodeNotAuthenticated)
}

// NewMalformedInput is returned when an inbound event cannot be decoded.
func NewMalformedInput(message string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message).WithCode(CodeMalformedInput)
}

// NewMissingFields is returned when required event fields are absent.
func NewMissingFields(fields ...string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, "missing required fields").
		WithCode(CodeMissingFields).
		WithDetails(map[string]interface{}{"fields": fields})
}

// NewPersistenceFailure wraps a diagram store failure.
func NewPersistenceFailure(operation string, err error) *AppError {
	return newAppError(ErrorTypeDatabase, http.StatusInternalServerError, fmt.Sprintf("%s failed", operation)).
		WithCode(CodePersistenceFailure).
		WithCause(err)
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(limit int, window string) *AppError {
	return newAppError(ErrorTypeRateLimit, http.StatusTooManyRequests,
		fmt.Sprintf("rate limit exceeded: %d messages per %s", limit, window)).WithCode(CodeRateLimited)
}

// General purpose errors

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource))
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message)
}

// NewUnavailableError creates a service unavailable error
func NewUnavailableError(service string) *AppError {
	return newAppError(ErrorTypeUnavailable, http.StatusServiceUnavailable, fmt.Sprintf("%s is unavailable", service))
}

// NewExternalError creates an external service error
func NewExternalError(service string, err error) *AppError {
	return newAppError(ErrorTypeExternal, http.StatusBadGateway, fmt.Sprintf("%s error", service)).WithCause(err)
}

// Helper functions

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsForbidden checks if an error is a forbidden error
func IsForbidden(err error) bool {
	return IsType(err, ErrorTypeForbidden)
}

// IsWarning reports whether err should reach a client as a non-fatal warning
// rather than an error event.
func IsWarning(err error) bool {
	return IsForbidden(err) || IsType(err, ErrorTypeRateLimit)
}

// CodeOf returns the error code carried by err, or fallback.
func CodeOf(err error, fallback string) string {
	if appErr := GetAppError(err); appErr != nil && appErr.Code != "" {
		return appErr.Code
	}
	return fallback
}

// Public returns the code and message safe to show a client. Errors that are
// not AppErrors are reported as internal without their text.
func Public(err error) (code, message string) {
	appErr := GetAppError(err)
	if appErr == nil {
		return string(ErrorTypeInternal), "an internal error occurred"
	}
	code = appErr.Code
	if code == "" {
		code = string(appErr.Type)
	}
	return code, appErr.Message
}
