package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrResolutionFailure marks a visibility-scope hop that could not
	// complete. It is never downgraded to an empty scope.
	ErrResolutionFailure = New("RESOLUTION_FAILURE", http.StatusBadGateway, "failed to resolve visibility scope")
	// ErrDependencyConflict marks a delete refused because dependent rows
	// still reference the target.
	ErrDependencyConflict = New("DEPENDENCY_CONFLICT", http.StatusConflict, "dependent records exist")
	// ErrCapacityExceeded marks a create or move that would exceed a
	// resource limit such as class capacity.
	ErrCapacityExceeded = New("CAPACITY_EXCEEDED", http.StatusConflict, "capacity exceeded")
	// ErrPartialMutation marks a multi-step mutation whose secondary step
	// failed after the primary step succeeded. The caller must verify
	// state before retrying.
	ErrPartialMutation = New("PARTIAL_MUTATION", http.StatusInternalServerError, "mutation partially applied")

	// ErrCacheMiss is the sentinel returned by cache lookups.
	ErrCacheMiss = errors.New("cache miss")
)

// DependencyConflict builds a DEPENDENCY_CONFLICT error naming the blocking
// entity and how many of its rows reference the delete target.
func DependencyConflict(entity string, count int) *Error {
	return &Error{
		Code:    ErrDependencyConflict.Code,
		Status:  ErrDependencyConflict.Status,
		Message: fmt.Sprintf("%d dependent %s record(s) exist", count, entity),
		Details: map[string]interface{}{"blocking_entity": entity, "count": count},
	}
}

// CapacityExceeded builds a CAPACITY_EXCEEDED error for the given class.
func CapacityExceeded(classID string, capacity int) *Error {
	return &Error{
		Code:    ErrCapacityExceeded.Code,
		Status:  ErrCapacityExceeded.Status,
		Message: fmt.Sprintf("class %s is at capacity (%d)", classID, capacity),
		Details: map[string]interface{}{"class_id": classID, "capacity": capacity},
	}
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
