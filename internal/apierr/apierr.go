// Package apierr defines the closed error taxonomy used across all API
// endpoints, the uniform error envelope returned to clients, and the mapping
// from error codes to HTTP status codes.
//
// Conventions:
//   - Codes are UPPER_SNAKE_CASE and form a closed set; clients branch on the
//     code, never on message text.
//   - Every builder returns a fully populated *ErrorResponse; handlers only
//     attach the request id and pick the status via HTTPStatus().
//   - Field-level detail (Details) is populated only for validation failures.
//
// Example error response:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "error": "Resource Already Exists",
//	  "code": "RESOURCE_ALREADY_EXISTS",
//	  "message": "User already exists with username: alice",
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000"
//	}
package apierr

import (
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error identifier.
type Code string

// The closed set of error codes. VALUE_OUT_OF_RANGE and MISSING_CONTENT_TYPE
// are declared for taxonomy completeness; current validators do not emit them.
const (
	// Validation errors
	CodeValidationError      Code = "VALIDATION_ERROR"
	CodeMissingRequiredField Code = "MISSING_REQUIRED_FIELD"
	CodeInvalidDataType      Code = "INVALID_DATA_TYPE"
	CodeInvalidFormat        Code = "INVALID_FORMAT"
	CodeValueTooShort        Code = "VALUE_TOO_SHORT"
	CodeValueTooLong         Code = "VALUE_TOO_LONG"
	CodeValueOutOfRange      Code = "VALUE_OUT_OF_RANGE"

	// Resource errors
	CodeResourceNotFound      Code = "RESOURCE_NOT_FOUND"
	CodeResourceAlreadyExists Code = "RESOURCE_ALREADY_EXISTS"

	// Database errors
	CodeDatabaseError       Code = "DATABASE_ERROR"
	CodeConstraintViolation Code = "CONSTRAINT_VIOLATION"

	// Request errors
	CodeInvalidJSON        Code = "INVALID_JSON"
	CodeMissingContentType Code = "MISSING_CONTENT_TYPE"

	// Internal errors
	CodeInternalServerError Code = "INTERNAL_SERVER_ERROR"
)

// FieldError describes a single field-level validation failure.
type FieldError struct {
	// Field is the dotted path of the offending field (e.g. "username").
	Field string `json:"field"`
	// Message is a human-readable description of the violation.
	Message string `json:"message"`
	// Code classifies the violation within the taxonomy.
	Code Code `json:"code"`
	// Value carries the offending input value when available.
	Value any `json:"value,omitempty"`
}

// ErrorResponse is the uniform failure payload returned by all endpoints.
type ErrorResponse struct {
	// Error is a short human-readable category label.
	Error string `json:"error"`
	// Code is the stable machine-readable identifier clients branch on.
	Code Code `json:"code"`
	// Message is the human-readable detail for this occurrence.
	Message string `json:"message"`
	// Details lists per-field errors; populated only for validation failures.
	Details []FieldError `json:"details,omitempty"`
	// RequestID correlates server logs with client-side errors.
	RequestID string `json:"request_id,omitempty"`
}

// ValidationError builds a VALIDATION_ERROR response carrying the given
// field-level details. A nil slice is normalized to an empty one so the
// payload shape stays stable for clients.
func ValidationError(message string, fieldErrors []FieldError) *ErrorResponse {
	if fieldErrors == nil {
		fieldErrors = []FieldError{}
	}
	return &ErrorResponse{
		Error:   "Validation Error",
		Code:    CodeValidationError,
		Message: message,
		Details: fieldErrors,
	}
}

// NotFound builds a RESOURCE_NOT_FOUND response for the given resource type.
// When an id is supplied it is appended to the message.
func NotFound(resourceType string, id ...any) *ErrorResponse {
	msg := resourceType + " not found"
	if len(id) > 0 && id[0] != nil {
		msg += fmt.Sprintf(" with id: %v", id[0])
	}
	return &ErrorResponse{
		Error:   "Resource Not Found",
		Code:    CodeResourceNotFound,
		Message: msg,
	}
}

// AlreadyExists builds a RESOURCE_ALREADY_EXISTS response naming the field
// and value that collided with an existing record.
func AlreadyExists(resourceType, field string, value any) *ErrorResponse {
	return &ErrorResponse{
		Error:   "Resource Already Exists",
		Code:    CodeResourceAlreadyExists,
		Message: fmt.Sprintf("%s already exists with %s: %v", resourceType, field, value),
	}
}

// ConstraintViolation builds a CONSTRAINT_VIOLATION response. When message is
// empty, a default naming the violated constraint is used.
func ConstraintViolation(constraintName, message string) *ErrorResponse {
	if message == "" {
		message = "Database constraint violation: " + constraintName
	}
	return &ErrorResponse{
		Error:   "Constraint Violation",
		Code:    CodeConstraintViolation,
		Message: message,
	}
}

// DatabaseError builds a DATABASE_ERROR response. An empty message falls back
// to a generic one.
func DatabaseError(message string) *ErrorResponse {
	if message == "" {
		message = "Database operation failed"
	}
	return &ErrorResponse{
		Error:   "Database Error",
		Code:    CodeDatabaseError,
		Message: message,
	}
}

// InvalidJSON builds an INVALID_JSON response. An empty message falls back
// to a generic one.
func InvalidJSON(message string) *ErrorResponse {
	if message == "" {
		message = "Invalid JSON in request body"
	}
	return &ErrorResponse{
		Error:   "Invalid JSON",
		Code:    CodeInvalidJSON,
		Message: message,
	}
}

// InternalServerError builds an INTERNAL_SERVER_ERROR response. An empty
// message falls back to a generic one.
func InternalServerError(message string) *ErrorResponse {
	if message == "" {
		message = "An internal server error occurred"
	}
	return &ErrorResponse{
		Error:   "Internal Server Error",
		Code:    CodeInternalServerError,
		Message: message,
	}
}

// HTTPStatus maps an error code to the HTTP status used for its response.
// Unmapped codes default to 500.
func HTTPStatus(code Code) int {
	switch code {
	case CodeResourceNotFound:
		return http.StatusNotFound
	case CodeResourceAlreadyExists, CodeConstraintViolation:
		return http.StatusConflict
	case CodeDatabaseError:
		return http.StatusInternalServerError
	case CodeValidationError, CodeInvalidJSON:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
