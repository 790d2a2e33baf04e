// Package errors provides the structured error type shared by the pipekit
// runtime, the serializer and the HTTP surface. Every error carries a
// machine-readable code, an HTTP status mapping and optional details.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates whether re-invoking the run may succeed.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Execution ---

// NodeFailed wraps the error returned by a failing node.
func NodeFailed(node string, cause error) *AppError {
	msg := "A pipeline node failed."
	if node != "" {
		msg = fmt.Sprintf("Pipeline node %s failed.", node)
	}
	return &AppError{
		Code: ErrCodeNodeFailed, Message: msg,
		HTTPStatus: http.StatusUnprocessableEntity, Cause: cause,
		Details: map[string]any{"node": node},
	}
}

// RunAborted reports a run cancelled by its caller. Deadline expiry maps to Timeout.
func RunAborted(cause error) *AppError {
	if stderrors.Is(cause, context.DeadlineExceeded) {
		return &AppError{
			Code: ErrCodeTimeout, Message: "The run exceeded its deadline.",
			HTTPStatus: http.StatusGatewayTimeout, Retryable: true, Cause: cause,
		}
	}
	return &AppError{
		Code: ErrCodeRunAborted, Message: "The run was cancelled.",
		HTTPStatus: 499, Retryable: true, Cause: cause,
	}
}

// --- Serialization ---

// InvalidRecord reports a malformed serialized record.
func InvalidRecord(identifier []string, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidRecord, Message: fmt.Sprintf("Invalid serialized record: %s", reason),
		HTTPStatus: http.StatusBadRequest,
		Details:    identifierDetails(identifier),
	}
}

// UnknownIdentifier reports an identifier the registry cannot resolve.
func UnknownIdentifier(identifier []string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownIdentifier, Message: fmt.Sprintf("Unknown identifier %s.", JoinIdentifier(identifier)),
		HTTPStatus: http.StatusBadRequest,
		Details:    identifierDetails(identifier),
	}
}

// NotInvokable reports a symbol that cannot be invoked with the requested type.
func NotInvokable(identifier []string, kind string) *AppError {
	return &AppError{
		Code: ErrCodeNotInvokable, Message: fmt.Sprintf("Identifier %s cannot be invoked as a %s.", JoinIdentifier(identifier), kind),
		HTTPStatus: http.StatusBadRequest,
		Details:    identifierDetails(identifier),
	}
}

// ConstructionFailed wraps an error returned while building a symbol.
func ConstructionFailed(identifier []string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConstructionFailed, Message: fmt.Sprintf("Building %s failed.", JoinIdentifier(identifier)),
		HTTPStatus: http.StatusBadRequest, Cause: cause,
		Details: identifierDetails(identifier),
	}
}

// NotSerializable reports a value without a serialized form.
func NotSerializable(what string) *AppError {
	return &AppError{
		Code: ErrCodeNotSerializable, Message: fmt.Sprintf("%s has no serialized form.", what),
		HTTPStatus: http.StatusInternalServerError,
	}
}

// --- Requests ---

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// PipelineNotFound creates a new AppError for a pipeline name no loader resolves.
func PipelineNotFound(name string) *AppError {
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("Pipeline %q not found.", name),
		HTTPStatus: http.StatusNotFound, Details: map[string]any{"pipeline": name},
	}
}

// Unauthorized creates a new AppError for unauthorized access.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return &AppError{
		Code: ErrCodeUnauthorized, Message: reason,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Internal creates a new AppError for an unexpected error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// JoinIdentifier renders an identifier path for messages.
func JoinIdentifier(identifier []string) string {
	return strings.Join(identifier, "/")
}

func identifierDetails(identifier []string) map[string]any {
	return map[string]any{"identifier": JoinIdentifier(identifier)}
}
