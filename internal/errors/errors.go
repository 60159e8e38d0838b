// Package errors defines the service error taxonomy shared by all components.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error class for API consumers.
type Code string

const (
	CodeValidation        Code = "VALIDATION"
	CodeNotFound          Code = "NOT_FOUND"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeConflict          Code = "CONFLICT"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeInternal          Code = "INTERNAL"
)

// ServiceError carries an error class, a client-safe message and the HTTP
// status it maps to. The wrapped cause is never surfaced to clients.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *ServiceError) Unwrap() error { return e.cause }

// WithDetails attaches a detail entry and returns the error for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Validation reports missing or malformed input.
func Validation(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NotFound reports an unresolvable resource. Ownership misses use it too so
// foreign resources are indistinguishable from absent ones.
func NotFound(resource string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: resource + " not found", HTTPStatus: http.StatusNotFound}
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(message string) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// Conflict reports a uniqueness violation.
func Conflict(message string) *ServiceError {
	return &ServiceError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

// InsufficientFunds reports a denied payment.
func InsufficientFunds(message string) *ServiceError {
	return &ServiceError{Code: CodeInsufficientFunds, Message: message, HTTPStatus: http.StatusBadRequest}
}

// Internal wraps an unexpected fault. The cause is kept for server-side logs;
// the message is the only part clients see.
func Internal(message string, cause error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// InvalidToken reports a token that failed validation.
func InvalidToken(cause error) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: "invalid token", HTTPStatus: http.StatusUnauthorized, cause: cause}
}

// GetServiceError extracts a ServiceError from an error chain, or nil.
func GetServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	svcErr := GetServiceError(err)
	return svcErr != nil && svcErr.Code == code
}
