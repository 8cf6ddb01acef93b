// Package errors provides the daemon's structured error taxonomy.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the error class surfaced to HTTP clients and the CLI.
type Code string

const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeValidation    Code = "VALIDATION"
	CodeConflict      Code = "CONFLICT"
	CodeRuntime       Code = "RUNTIME"
	CodeUpstream      Code = "UPSTREAM"
	CodeInterrupted   Code = "INTERRUPTED"
	CodeInternal      Code = "INTERNAL"
)

// DaemonError is a structured error carrying an HTTP status and a code.
type DaemonError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DaemonError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DaemonError) Unwrap() error { return e.Err }

// WithDetail attaches a key/value to the error's Details map.
func (e *DaemonError) WithDetail(key string, value any) *DaemonError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func New(code Code, message string, status int) *DaemonError {
	return &DaemonError{Code: code, Message: message, HTTPStatus: status}
}

func Wrap(code Code, message string, status int, err error) *DaemonError {
	return &DaemonError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// NotFound builds a 404 for a missing object identified by kind/key.
func NotFound(kind, key string) *DaemonError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", kind), http.StatusNotFound).
		WithDetail("kind", kind).WithDetail("key", key)
}

// AlreadyExists builds a 409 for an insert conflict.
func AlreadyExists(kind, key string) *DaemonError {
	return New(CodeAlreadyExists, fmt.Sprintf("%s already exists", kind), http.StatusConflict).
		WithDetail("kind", kind).WithDetail("key", key)
}

// Validation builds a 400 for a schema/shape violation.
func Validation(message string) *DaemonError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// Conflict builds a 409 for an operation forbidden by current state.
func Conflict(message string) *DaemonError {
	return New(CodeConflict, message, http.StatusConflict)
}

// Runtime wraps a container-runtime error (not a 404) as a 500.
func Runtime(operation string, err error) *DaemonError {
	return Wrap(CodeRuntime, fmt.Sprintf("runtime operation %q failed", operation), http.StatusInternalServerError, err).
		WithDetail("operation", operation)
}

// Upstream wraps a controller client failure as a 502.
func Upstream(service string, err error) *DaemonError {
	return Wrap(CodeUpstream, fmt.Sprintf("upstream %q call failed", service), http.StatusBadGateway, err).
		WithDetail("service", service)
}

// Interrupted marks a user-cancelled operation. Never surfaced over HTTP;
// callers log it and stop.
func Interrupted(message string) *DaemonError {
	return New(CodeInterrupted, message, 0)
}

// Internal is the catch-all 500.
func Internal(message string, err error) *DaemonError {
	return Wrap(CodeInternal, message, http.StatusInternalServerError, err)
}

// As extracts a *DaemonError from an error chain.
func As(err error) (*DaemonError, bool) {
	var de *DaemonError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HTTPStatus returns the status code to use for err, defaulting to 500.
func HTTPStatus(err error) int {
	if de, ok := As(err); ok {
		return de.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err is (or wraps) a NotFound DaemonError.
func IsNotFound(err error) bool {
	de, ok := As(err)
	return ok && de.Code == CodeNotFound
}
