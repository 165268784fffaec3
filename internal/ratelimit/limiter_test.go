package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_AllowsWithinBurst(t *testing.T) {
	l := NewLimiter(1000, 10)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		if err := l.WaitURL(ctx, "https://example.com/x"); err != nil {
			t.Fatalf("WaitURL() error = %v", err)
		}
	}
}

func TestLimiter_ThrottlesBeyondBurst(t *testing.T) {
	l := NewLimiter(5, 1)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	// Two of the three calls had to wait at 5 rps.
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("elapsed = %v, want throttling beyond the burst", elapsed)
	}
}

func TestLimiter_CancelledContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	_ = l.Wait(context.Background()) // consume the burst

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Error("Wait() succeeded despite exhausted budget and expired context")
	}
}

func TestDomainOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.COM/path?q=1", "example.com"},
		{"https://sub.example.com:8443/x", "sub.example.com"},
		{"not a url at all \x00", "not a url at all \x00"},
	}
	for _, tt := range tests {
		if got := domainOf(tt.in); got != tt.want {
			t.Errorf("domainOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
