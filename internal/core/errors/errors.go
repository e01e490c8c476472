package errors

import (
	"errors"
	"fmt"
)

// Machine-readable error codes surfaced to callers alongside messages.
const (
	CodeNetworkFailure  = "NETWORK_FAILURE"
	CodeAuthFailure     = "AUTH_FAILURE"
	CodeValidationError = "VALIDATION_ERROR"
	CodeInvalidState    = "INVALID_STATE"
	CodeDisconnected    = "DISCONNECTED"
)

// Domain errors - these represent business rule violations
var (
	// Session & authentication
	ErrMissingToken = errors.New("no bearer token in session")
	ErrTokenExpired = errors.New("bearer token is expired")
	ErrUnauthorized = errors.New("unauthorized")

	// Job lifecycle
	ErrTrabajoNotFound        = errors.New("trabajo not found")
	ErrInvalidTransition      = errors.New("action not allowed in current state")
	ErrPendingUpdate          = errors.New("trabajo has an unconfirmed update in flight")
	ErrTerminalState          = errors.New("trabajo is in a terminal state")
	ErrReportReasonRequired   = errors.New("report reason is required")
	ErrReportDescriptionShort = errors.New("report description is too short")
	ErrServicioNombreRequired = errors.New("service name is required")
	ErrTecnicoRequired        = errors.New("technician ID is required")
	ErrDireccionRequired      = errors.New("address is required")

	// Conversations & messages
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyMessage         = errors.New("message text is required")

	// Realtime
	ErrDisconnected            = errors.New("realtime transport is not connected")
	ErrConnectRetriesExhausted = errors.New("reconnect attempts exhausted")
)

// AppError wraps errors with the machine-readable code of the client-side
// error taxonomy plus the server-provided message, kept verbatim.
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-facing message (server text when available)
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code, 0 when not HTTP-originated
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// CodeOf returns the taxonomy code carried by err, or empty when err is not
// an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Error constructors for common cases

func NewNetworkError(err error) *AppError {
	return &AppError{
		Err:     err,
		Message: "could not reach the server",
		Code:    CodeNetworkFailure,
	}
}

func NewAuthError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       CodeAuthFailure,
		StatusCode: 401,
	}
}

// NewValidationError carries the server's message through unchanged so the
// caller can show it inline.
func NewValidationError(statusCode int, message string) *AppError {
	return &AppError{
		Err:        errors.New(message),
		Message:    message,
		Code:       CodeValidationError,
		StatusCode: statusCode,
	}
}

func NewInvalidStateError(err error, estado, action string) *AppError {
	return &AppError{
		Err:     err,
		Message: fmt.Sprintf("action %q is not allowed while the trabajo is %s", action, estado),
		Code:    CodeInvalidState,
	}
}

func NewDisconnectedError() *AppError {
	return &AppError{
		Err:     ErrDisconnected,
		Message: "not connected to the realtime channel",
		Code:    CodeDisconnected,
	}
}

func NewServerError(statusCode int, message string) *AppError {
	if message == "" {
		message = "the server reported an unexpected error"
	}
	return &AppError{
		Err:        errors.New(message),
		Message:    message,
		Code:       CodeNetworkFailure,
		StatusCode: statusCode,
	}
}
