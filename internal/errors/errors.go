// Package errors provides error types and handling for the form auditor.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorType categorizes errors for handling decisions.
type ErrorType int

const (
	// Unknown is an uncategorized error.
	Unknown ErrorType = iota
	// FieldNotFound means a named field does not exist on a form.
	FieldNotFound
	// NonceRefresh means a pre-submission nonce refresh could not locate
	// a matching form on the refetched page.
	NonceRefresh
	// Network represents network-related errors (DNS, connection).
	Network
	// Timeout represents timeout errors.
	Timeout
	// Transport represents HTTP-level submission failures.
	Transport
	// Cancelled represents context cancellation.
	Cancelled
)

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	switch t {
	case FieldNotFound:
		return "field_not_found"
	case NonceRefresh:
		return "nonce_refresh"
	case Network:
		return "network"
	case Timeout:
		return "timeout"
	case Transport:
		return "transport"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsRetryable returns whether errors of this type should be retried.
func (t ErrorType) IsRetryable() bool {
	switch t {
	case Network, Timeout:
		return true
	default:
		return false
	}
}

// AuditError represents a categorized audit error.
type AuditError struct {
	Type      ErrorType
	Action    string // form action or URL the error relates to
	Operation string
	Message   string
	Cause     error
	Retryable bool
}

// Error implements the error interface.
func (e *AuditError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error during %s on %s: %s (caused by: %v)",
			e.Type.String(), e.Operation, e.Action, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error during %s on %s: %s",
		e.Type.String(), e.Operation, e.Action, e.Message)
}

// Unwrap returns the underlying error.
func (e *AuditError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target.
func (e *AuditError) Is(target error) bool {
	t, ok := target.(*AuditError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewAuditError creates a new AuditError.
func NewAuditError(errType ErrorType, action, operation, message string, cause error) *AuditError {
	return &AuditError{
		Type:      errType,
		Action:    action,
		Operation: operation,
		Message:   message,
		Cause:     cause,
		Retryable: errType.IsRetryable(),
	}
}

// NewFieldNotFoundError creates an error for a field name that does not
// exist on the form.
func NewFieldNotFoundError(action, field string) *AuditError {
	return NewAuditError(FieldNotFound, action, "set_nonce_field",
		fmt.Sprintf("no field named %q", field), nil)
}

// NewNonceRefreshError creates an error for a failed nonce refresh.
func NewNonceRefreshError(action, message string, cause error) *AuditError {
	return NewAuditError(NonceRefresh, action, "nonce_refresh", message, cause)
}

// NewNetworkError creates a network error.
func NewNetworkError(url, operation string, cause error) *AuditError {
	return NewAuditError(Network, url, operation, "network failure", cause)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(url, operation string, cause error) *AuditError {
	return NewAuditError(Timeout, url, operation, "request timed out", cause)
}

// NewTransportError creates a submission transport error.
func NewTransportError(url string, statusCode int, cause error) *AuditError {
	err := NewAuditError(Transport, url, "submit",
		fmt.Sprintf("submission failed with status %d", statusCode), cause)
	err.Retryable = statusCode >= 500
	return err
}

// NewCancelledError creates a cancelled error.
func NewCancelledError(url, operation string) *AuditError {
	err := NewAuditError(Cancelled, url, operation, "operation cancelled", nil)
	err.Retryable = false
	return err
}

// Categorize determines the error type from a generic error.
func Categorize(err error, url string) *AuditError {
	if err == nil {
		return nil
	}

	var auditErr *AuditError
	if errors.As(err, &auditErr) {
		return auditErr
	}

	if errors.Is(err, context.Canceled) {
		return NewCancelledError(url, "request")
	}

	if isTimeout(err) {
		return NewTimeoutError(url, "request", err)
	}

	if isNetworkError(err) {
		return NewNetworkError(url, "request", err)
	}

	return NewAuditError(Unknown, url, "request", err.Error(), err)
}

// IsFieldNotFound checks if an error is a missing-field error.
func IsFieldNotFound(err error) bool {
	var auditErr *AuditError
	if errors.As(err, &auditErr) {
		return auditErr.Type == FieldNotFound
	}
	return false
}

// IsNonceRefresh checks if an error is a failed nonce refresh.
func IsNonceRefresh(err error) bool {
	var auditErr *AuditError
	if errors.As(err, &auditErr) {
		return auditErr.Type == NonceRefresh
	}
	return false
}

// IsRetryable checks if an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var auditErr *AuditError
	if errors.As(err, &auditErr) {
		return auditErr.Retryable
	}

	var tempErr interface{ Temporary() bool }
	if errors.As(err, &tempErr) && tempErr.Temporary() {
		return true
	}

	return isTimeout(err) || isNetworkError(err)
}

// GetErrorType extracts the error type from an error.
func GetErrorType(err error) ErrorType {
	var auditErr *AuditError
	if errors.As(err, &auditErr) {
		return auditErr.Type
	}
	return Unknown
}

// isTimeout checks if an error is a timeout.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if an error is network-related.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp")
}
