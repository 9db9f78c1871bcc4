package realtime

import (
	"errors"
	"fmt"
)

// Error represents a realtime broker error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for broker operations.
const (
	// ErrCodeNoData indicates no data was found.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeValidation indicates validation failed.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates invalid configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeProtocol indicates a malformed or unexpected client frame.
	ErrCodeProtocol = "PROTOCOL_ERROR"

	// ErrCodePermission indicates a subscription was denied.
	ErrCodePermission = "PERMISSION_DENIED"

	// ErrCodeTransport indicates a send or close failed on a connection.
	ErrCodeTransport = "TRANSPORT_ERROR"

	// ErrCodeCluster indicates the cluster bus failed; the broker keeps
	// operating in local-only mode.
	ErrCodeCluster = "CLUSTER_ERROR"

	// ErrCodeDatabase indicates an archive operation failed.
	ErrCodeDatabase = "DATABASE_ERROR"
)

// Common errors.
var (
	// ErrNoData is returned when a query returns no results.
	// This is not necessarily an error condition in all cases.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}

	// ErrConnectionClosed is returned when sending on a closed connection.
	ErrConnectionClosed = &Error{
		Code:    ErrCodeTransport,
		Message: "connection closed",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// IsNoData checks if an error is ErrNoData.
func IsNoData(err error) bool {
	var rtErr *Error
	if errors.As(err, &rtErr) {
		return rtErr.Code == ErrCodeNoData
	}
	return errors.Is(err, ErrNoData)
}
