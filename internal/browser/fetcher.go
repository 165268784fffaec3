// Package browser provides a headless-Chrome page fetcher via Rod, for
// targets whose forms only exist after client-side rendering.
package browser

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// Config defines browser configuration.
type Config struct {
	Headless          bool          `json:"headless" yaml:"headless"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`
	UserAgent         string        `json:"user_agent" yaml:"user_agent"`
	Headers           map[string]string
	IgnoreHTTPSErrors bool `json:"ignore_https_errors" yaml:"ignore_https_errors"`
}

// DefaultConfig returns default browser configuration.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		Timeout:           15 * time.Second,
		IgnoreHTTPSErrors: true,
	}
}

// Fetcher loads pages in a headless browser and returns the rendered
// HTML. It satisfies the same Fetch contract as the plain HTTP client,
// so the nonce coordinator and scanner can use either interchangeably.
type Fetcher struct {
	browser *rod.Browser
	config  Config
}

// NewFetcher launches a browser and connects to it.
func NewFetcher(config Config) (*Fetcher, error) {
	l := launcher.New().
		Headless(config.Headless).
		Set("disable-gpu").
		Set("no-sandbox")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, err
	}

	if config.IgnoreHTTPSErrors {
		_ = proto.SecuritySetIgnoreCertificateErrors{Ignore: true}.Call(b)
	}

	return &Fetcher{browser: b, config: config}, nil
}

// Fetch navigates to the URL, waits for the page to load, and returns
// the rendered HTML.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	page, err := f.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return "", err
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(f.config.Timeout)

	if f.config.UserAgent != "" {
		_ = proto.NetworkSetUserAgentOverride{
			UserAgent: f.config.UserAgent,
		}.Call(page)
	}

	if len(f.config.Headers) > 0 {
		networkHeaders := make(proto.NetworkHeaders)
		for k, v := range f.config.Headers {
			networkHeaders[k] = gson.New(v)
		}
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: networkHeaders}.Call(page)
	}

	if err := page.Navigate(rawURL); err != nil {
		return "", err
	}
	if err := page.WaitLoad(); err != nil {
		return "", err
	}

	return page.HTML()
}

// Close shuts the browser down.
func (f *Fetcher) Close() error {
	return f.browser.Close()
}
