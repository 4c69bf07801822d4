package types

import "fmt"

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Routing and execution error codes
const (
	ErrClassifierFailure     ErrorCode = "CLASSIFIER_FAILURE"
	ErrHandlerFailure        ErrorCode = "HANDLER_FAILURE"
	ErrUnknownTaskKind       ErrorCode = "UNKNOWN_TASK_KIND"
	ErrUnresolvedPlaceholder ErrorCode = "UNRESOLVED_PLACEHOLDER"
	ErrWorkflowNotFound      ErrorCode = "WORKFLOW_NOT_FOUND"
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"
	ErrUnauthorized          ErrorCode = "UNAUTHORIZED"
	ErrTimeout               ErrorCode = "TIMEOUT"
	ErrInternalError         ErrorCode = "INTERNAL_ERROR"
)

// Collaborator error codes
const (
	ErrQueueFailure    ErrorCode = "QUEUE_FAILURE"
	ErrMemoryFailure   ErrorCode = "MEMORY_FAILURE"
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
	ErrRateLimited     ErrorCode = "RATE_LIMITED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
