// Package ratelimit throttles outgoing fetches and submissions.
package ratelimit

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter applies a global rate plus an independent per-domain rate so
// one slow target cannot starve the rest of the scan.
type Limiter struct {
	mu           sync.Mutex
	limiter      *rate.Limiter
	perDomain    map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter allowing requestsPerSecond with the given
// burst, applied both globally and per domain.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter:      rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		perDomain:    make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until a request is allowed or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// WaitURL blocks until a request to the URL's domain is allowed.
func (l *Limiter) WaitURL(ctx context.Context, rawURL string) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	return l.domainLimiter(domainOf(rawURL)).Wait(ctx)
}

func (l *Limiter) domainLimiter(domain string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	dl, ok := l.perDomain[domain]
	if !ok {
		dl = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.perDomain[domain] = dl
	}
	return dl
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}
