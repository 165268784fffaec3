package errors

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
)

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		typ  ErrorType
		want string
	}{
		{Unknown, "unknown"},
		{FieldNotFound, "field_not_found"},
		{NonceRefresh, "nonce_refresh"},
		{Network, "network"},
		{Timeout, "timeout"},
		{Transport, "transport"},
		{Cancelled, "cancelled"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestAuditError_ErrorMessage(t *testing.T) {
	err := NewFieldNotFoundError("https://example.com/login", "csrf")

	msg := err.Error()
	if msg == "" {
		t.Fatal("empty error message")
	}
	for _, want := range []string{"field_not_found", "https://example.com/login", "csrf"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestAuditError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NewNonceRefreshError("https://example.com/x", "refetch failed", cause)

	if err.Unwrap() != cause {
		t.Error("Unwrap() lost the cause")
	}
}

func TestPredicates(t *testing.T) {
	nonceErr := NewNonceRefreshError("https://example.com/x", "no match", nil)
	fieldErr := NewFieldNotFoundError("https://example.com/x", "csrf")

	if !IsNonceRefresh(nonceErr) || IsNonceRefresh(fieldErr) {
		t.Error("IsNonceRefresh misclassified")
	}
	if !IsFieldNotFound(fieldErr) || IsFieldNotFound(nonceErr) {
		t.Error("IsFieldNotFound misclassified")
	}

	// Predicates see through wrapping.
	wrapped := fmt.Errorf("dispatch: %w", nonceErr)
	if !IsNonceRefresh(wrapped) {
		t.Error("IsNonceRefresh failed on wrapped error")
	}
	if GetErrorType(wrapped) != NonceRefresh {
		t.Errorf("GetErrorType() = %v, want NonceRefresh", GetErrorType(wrapped))
	}

	if IsNonceRefresh(fmt.Errorf("plain")) {
		t.Error("IsNonceRefresh true for plain error")
	}
	if GetErrorType(fmt.Errorf("plain")) != Unknown {
		t.Error("GetErrorType not Unknown for plain error")
	}
}

func TestRetryability(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", NewNetworkError("u", "fetch", nil), true},
		{"timeout", NewTimeoutError("u", "fetch", nil), true},
		{"nonce refresh", NewNonceRefreshError("u", "no match", nil), false},
		{"field not found", NewFieldNotFoundError("u", "f"), false},
		{"cancelled", NewCancelledError("u", "fetch"), false},
		{"transport 500", NewTransportError("u", 500, nil), true},
		{"transport 404", NewTransportError("u", 404, nil), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"context canceled", context.Canceled, Cancelled},
		{"deadline exceeded", context.DeadlineExceeded, Timeout},
		{"dns error", &net.DNSError{Err: "no such host", Name: "x.invalid"}, Network},
		{"op error", &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("refused")}, Network},
		{"plain", fmt.Errorf("something odd"), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.err, "https://example.com/x")
			if got.Type != tt.want {
				t.Errorf("Categorize() type = %v, want %v", got.Type, tt.want)
			}
		})
	}

	// An already-categorized error passes through unchanged.
	orig := NewNonceRefreshError("u", "no match", nil)
	if got := Categorize(orig, "other"); got != orig {
		t.Error("Categorize rewrapped an AuditError")
	}

	if Categorize(nil, "u") != nil {
		t.Error("Categorize(nil) != nil")
	}
}

