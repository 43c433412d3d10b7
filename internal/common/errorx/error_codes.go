package errorx

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strings"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryValidation     ErrorCategory = "validation"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryAuthorization  ErrorCategory = "authorization"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryConflict       ErrorCategory = "conflict"
	CategoryBackend        ErrorCategory = "backend"
	CategoryInternal       ErrorCategory = "internal"
	CategoryConfiguration  ErrorCategory = "configuration"
)

// Severity represents the severity level of an error
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// APIError represents a structured API error.
//
// The package level errors below are templates: every With* method returns a
// modified copy and never touches the receiver.
type APIError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Category   ErrorCategory  `json:"category"`
	Severity   Severity       `json:"-"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	TraceID    string         `json:"trace_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
}

// Is matches APIErrors by code so errors.Is works against the templates.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// JSON returns the error as a JSON string
func (e *APIError) JSON() string {
	out, _ := json.Marshal(e)
	return string(out)
}

func (e *APIError) clone() *APIError {
	cp := *e
	cp.Details = maps.Clone(e.Details)
	return &cp
}

// WithDetail returns a copy of the error carrying key=value in its details
func (e *APIError) WithDetail(key string, value any) *APIError {
	cp := e.clone()
	if cp.Details == nil {
		cp.Details = make(map[string]any)
	}
	cp.Details[key] = value
	return cp
}

// WithMessage returns a copy of the error with a more specific message
func (e *APIError) WithMessage(format string, args ...any) *APIError {
	cp := e.clone()
	cp.Message = fmt.Sprintf(format, args...)
	return cp
}

// WithTraceID returns a copy of the error tagged with a trace ID
func (e *APIError) WithTraceID(traceID string) *APIError {
	cp := e.clone()
	cp.TraceID = traceID
	return cp
}

var (
	// Validation Errors (E1000-E1999)
	ErrInvalidInput = &APIError{
		Code:       "E1001",
		Message:    "Invalid input provided",
		Category:   CategoryValidation,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMissingField = &APIError{
		Code:       "E1002",
		Message:    "Required field is missing",
		Category:   CategoryValidation,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMethodNotAllowed = &APIError{
		Code:       "E1003",
		Message:    "Method not allowed",
		Category:   CategoryValidation,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrUnknownAction = &APIError{
		Code:       "E1004",
		Message:    "Unknown action",
		Category:   CategoryValidation,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidIdentifier = &APIError{
		Code:       "E1005",
		Message:    "Invalid table or column name",
		Category:   CategoryValidation,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidRole = &APIError{
		Code:       "E1006",
		Message:    "Invalid role",
		Category:   CategoryValidation,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidPermission = &APIError{
		Code:       "E1007",
		Message:    "Invalid permission type",
		Category:   CategoryValidation,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	}

	// Authentication Errors (E2000-E2999)
	ErrUnauthorized = &APIError{
		Code:       "E2001",
		Message:    "Unauthorized",
		Category:   CategoryAuthentication,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrMissingCredentials = &APIError{
		Code:       "E2004",
		Message:    "Missing app_key or user_key",
		Category:   CategoryAuthentication,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidAppKey = &APIError{
		Code:       "E2005",
		Message:    "Invalid app key",
		Category:   CategoryAuthentication,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidUserKey = &APIError{
		Code:       "E2006",
		Message:    "Invalid user key",
		Category:   CategoryAuthentication,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusUnauthorized,
	}

	// Authorization Errors (E3000-E3999)
	ErrPermissionDenied = &APIError{
		Code:       "E3002",
		Message:    "Permission denied",
		Category:   CategoryAuthorization,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusForbidden,
	}

	ErrAccessDenied = &APIError{
		Code:       "E3003",
		Message:    "User does not have access to this app",
		Category:   CategoryAuthorization,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusForbidden,
	}

	ErrSystemTableForbidden = &APIError{
		Code:       "E3004",
		Message:    "Access to system tables is forbidden",
		Category:   CategoryAuthorization,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusForbidden,
	}

	// Not Found Errors (E4000-E4999)
	ErrResourceNotFound = &APIError{
		Code:       "E4001",
		Message:    "Requested resource not found",
		Category:   CategoryNotFound,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusNotFound,
	}

	ErrUserNotFound = &APIError{
		Code:       "E4003",
		Message:    "User not found",
		Category:   CategoryNotFound,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusNotFound,
	}

	ErrAppNotFound = &APIError{
		Code:       "E4004",
		Message:    "App not found",
		Category:   CategoryNotFound,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusNotFound,
	}

	ErrGrantNotFound = &APIError{
		Code:       "E4005",
		Message:    "Access grant not found",
		Category:   CategoryNotFound,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusNotFound,
	}

	ErrTableNotFound = &APIError{
		Code:       "E4006",
		Message:    "Table not found",
		Category:   CategoryNotFound,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusNotFound,
	}

	// Conflict Errors (E4090-E4099)
	ErrDuplicateID = &APIError{
		Code:       "E4091",
		Message:    "Resource already exists",
		Category:   CategoryConflict,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusConflict,
	}

	// Internal Server Errors (E5000-E5999)
	ErrInternalServer = &APIError{
		Code:       "E5001",
		Message:    "Internal server error occurred",
		Category:   CategoryInternal,
		Severity:   SeverityCritical,
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrBackendFailure = &APIError{
		Code:       "E5002",
		Message:    "Database operation failed",
		Category:   CategoryBackend,
		Severity:   SeverityError,
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrConfigurationError = &APIError{
		Code:       "E5003",
		Message:    "Server misconfiguration",
		Category:   CategoryConfiguration,
		Severity:   SeverityCritical,
		HTTPStatus: http.StatusInternalServerError,
	}
)

// Helper functions for creating specific errors

// ValidationError creates a validation error naming the offending field
func ValidationError(field string, reason string) *APIError {
	return ErrInvalidInput.WithMessage("Invalid %s: %s", field, reason).
		WithDetail("field", field)
}

// MissingFieldError creates a validation error for an absent required field
func MissingFieldError(fields ...string) *APIError {
	return ErrMissingField.WithMessage("Required field missing: %s", strings.Join(fields, ", ")).
		WithDetail("fields", fields)
}

// NotFoundError creates a not found error for a specific resource
func NotFoundError(resourceType string, identifier string) *APIError {
	return ErrResourceNotFound.WithMessage("%s not found: %s", resourceType, identifier).
		WithDetail("resource_type", resourceType).
		WithDetail("identifier", identifier)
}

// ConflictError creates a conflict error for a specific resource
func ConflictError(resourceType string, field string, value any) *APIError {
	return ErrDuplicateID.WithMessage("%s with %s %v already exists", resourceType, field, value).
		WithDetail("resource_type", resourceType).
		WithDetail("field", field).
		WithDetail("value", value)
}

// BackendError wraps a store failure, keeping the store's message for the caller
func BackendError(err error) *APIError {
	return ErrBackendFailure.WithMessage("Database operation failed: %s", err.Error())
}
