// Package errors defines the service error type shared by handlers, services
// and middleware.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode is a machine readable error classification.
type ErrorCode string

const (
	CodeBadRequest   ErrorCode = "BAD_REQUEST"
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeClientError  ErrorCode = "CLIENT_ERROR"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeRateLimited  ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Type    string `json:"type,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ServiceError is an error with an HTTP status and a client-facing message.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Fields     []FieldError
	Err        error
}

// New creates a ServiceError.
func New(code ErrorCode, status int, message string) *ServiceError {
	return &ServiceError{Code: code, HTTPStatus: status, Message: message}
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a detail key/value pair and returns the same error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithFields appends field errors and returns the same error.
func (e *ServiceError) WithFields(fields ...FieldError) *ServiceError {
	e.Fields = append(e.Fields, fields...)
	return e
}

// BadRequest reports malformed input.
func BadRequest(message string) *ServiceError {
	return New(CodeBadRequest, http.StatusBadRequest, message)
}

// Validation reports input that failed declarative validation.
func Validation(fields ...FieldError) *ServiceError {
	return New(CodeValidation, http.StatusUnprocessableEntity, "Parameters validation error!").WithFields(fields...)
}

// Unprocessable reports a well-formed request the service refuses to apply,
// such as a duplicate e-mail.
func Unprocessable(message string, fields ...FieldError) *ServiceError {
	return New(CodeClientError, http.StatusUnprocessableEntity, message).WithFields(fields...)
}

// Unauthorized reports a missing or unusable credential.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "Unauthorized"
	}
	return New(CodeUnauthorized, http.StatusUnauthorized, message)
}

// InvalidToken reports a token that failed verification.
func InvalidToken(err error) *ServiceError {
	e := New(CodeInvalidToken, http.StatusUnauthorized, "Invalid token")
	e.Err = err
	return e
}

// Forbidden reports an authenticated caller without permission.
func Forbidden(message string) *ServiceError {
	if message == "" {
		message = "Forbidden"
	}
	return New(CodeForbidden, http.StatusForbidden, message)
}

// NotFound reports a missing entity.
func NotFound(message string) *ServiceError {
	return New(CodeNotFound, http.StatusNotFound, message)
}

// RateLimitExceeded reports a throttled caller.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return New(CodeRateLimited, http.StatusTooManyRequests, "Rate limit exceeded").
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *ServiceError {
	e := New(CodeInternal, http.StatusInternalServerError, message)
	e.Err = err
	return e
}

// GetServiceError returns the first ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// HTTPStatus returns the status for err, defaulting to 500.
func HTTPStatus(err error) int {
	if se := GetServiceError(err); se != nil {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}
