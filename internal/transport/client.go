// Package transport executes form submissions and page fetches over HTTP.
package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PentesterFlow/OpenAuditor/internal/errors"
	"github.com/PentesterFlow/OpenAuditor/internal/form"
	"github.com/PentesterFlow/OpenAuditor/internal/ratelimit"
)

// Mode distinguishes queued/asynchronous dispatch from blocking dispatch.
type Mode int

const (
	// ModeQueued submissions run on the dispatcher's worker pool.
	ModeQueued Mode = iota
	// ModeBlocking submissions run inline on the calling goroutine, used
	// for forms whose nonce was just refreshed.
	ModeBlocking
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	if m == ModeBlocking {
		return "blocking"
	}
	return "queued"
}

// Response is the outcome of one submission or fetch.
type Response struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        string
	Mode        Mode
	Duration    time.Duration
}

// Config holds configuration for the HTTP client.
type Config struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	UserAgent           string
	Headers             map[string]string
	SkipTLSVerify       bool
	MaxBodySize         int64
}

// DefaultConfig returns optimized defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             10 * time.Second,
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 50,
		MaxConnsPerHost:     50,
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		SkipTLSVerify:       true,
		MaxBodySize:         4 << 20,
	}
}

// Client is the HTTP transport collaborator: it fetches pages and submits
// forms but knows nothing about variant generation or deduplication.
type Client struct {
	client      *http.Client
	userAgent   string
	headers     map[string]string
	cookies     []*http.Cookie
	retrier     *errors.Retrier
	limiter     *ratelimit.Limiter
	maxBodySize int64
	mu          sync.RWMutex
}

// NewClient creates a new HTTP client. A nil limiter disables throttling.
func NewClient(config Config, limiter *ratelimit.Limiter) *Client {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultConfig().MaxBodySize
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.SkipTLSVerify,
		},
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:   config.UserAgent,
		headers:     config.Headers,
		retrier:     errors.NewDefaultRetrier(),
		limiter:     limiter,
		maxBodySize: config.MaxBodySize,
	}
}

// SetCookies sets cookies for all requests.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.mu.Lock()
	c.cookies = cookies
	c.mu.Unlock()
}

// SetHeaders sets custom headers for all requests.
func (c *Client) SetHeaders(headers map[string]string) {
	c.mu.Lock()
	c.headers = headers
	c.mu.Unlock()
}

// Fetch retrieves a page body. Fetches are idempotent and retried on
// transient failures.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	var body string

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.WaitURL(ctx, rawURL); err != nil {
				return errors.NewCancelledError(rawURL, "fetch")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return errors.NewAuditError(errors.Unknown, rawURL, "fetch", "invalid URL", err)
		}
		c.decorate(req)

		resp, err := c.client.Do(req)
		if err != nil {
			return errors.Categorize(err, rawURL)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
		if err != nil {
			return errors.Categorize(err, rawURL)
		}
		body = string(data)
		return nil
	})

	return body, err
}

// Submit executes one form submission. Submissions are never retried:
// replaying a request that may have changed server state would skew the
// audit.
func (c *Client) Submit(ctx context.Context, f *form.Form, mode Mode) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, f.Action); err != nil {
			return nil, errors.NewCancelledError(f.Action, "submit")
		}
	}

	req, err := c.buildRequest(ctx, f)
	if err != nil {
		return nil, err
	}
	c.decorate(req)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Categorize(err, f.Action)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, errors.Categorize(err, f.Action)
	}

	return &Response{
		URL:         f.Action,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        string(data),
		Mode:        mode,
		Duration:    time.Since(start),
	}, nil
}

// buildRequest encodes the form's fields into a GET query or a POST
// x-www-form-urlencoded body.
func (c *Client) buildRequest(ctx context.Context, f *form.Form) (*http.Request, error) {
	values := url.Values{}
	for name, value := range f.Values() {
		values.Set(name, value)
	}

	if f.Method == "post" {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Action,
			strings.NewReader(values.Encode()))
		if err != nil {
			return nil, errors.NewAuditError(errors.Unknown, f.Action, "submit", "invalid action URL", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	target, err := url.Parse(f.Action)
	if err != nil {
		return nil, errors.NewAuditError(errors.Unknown, f.Action, "submit", "invalid action URL", err)
	}

	// Field values override same-named parameters already on the action.
	query := target.Query()
	for name := range values {
		query.Set(name, values.Get(name))
	}
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, errors.NewAuditError(errors.Unknown, f.Action, "submit", "invalid action URL", err)
	}
	return req, nil
}

func (c *Client) decorate(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
}
