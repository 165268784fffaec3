package scanner

import (
	"time"

	"github.com/PentesterFlow/OpenAuditor/internal/browser"
	"github.com/PentesterFlow/OpenAuditor/internal/mutate"
	"github.com/PentesterFlow/OpenAuditor/internal/nonce"
)

// Option is a functional option for configuring the Scanner.
type Option func(*Scanner) error

// WithTarget sets the page whose forms are audited.
func WithTarget(url string) Option {
	return func(s *Scanner) error {
		s.config.Target = url
		return nil
	}
}

// WithSeeds sets the payload strings injected per mutation round.
func WithSeeds(seeds ...string) Option {
	return func(s *Scanner) error {
		s.config.Seeds = seeds
		return nil
	}
}

// WithWorkers sets the number of concurrent submission workers.
func WithWorkers(n int) Option {
	return func(s *Scanner) error {
		if n < 1 {
			n = 1
		}
		s.config.Workers = n
		return nil
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Scanner) error {
		s.config.Timeout = timeout
		return nil
	}
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Scanner) error {
		s.config.RateLimit = rps
		s.config.Burst = burst
		return nil
	}
}

// WithSkipOriginal drops the Original and SampleFilled variant classes.
func WithSkipOriginal(skip bool) Option {
	return func(s *Scanner) error {
		s.config.SkipOriginal = skip
		return nil
	}
}

// WithSkipFields names fields never injected with payloads.
func WithSkipFields(fields ...string) Option {
	return func(s *Scanner) error {
		s.config.SkipFields = append(s.config.SkipFields, fields...)
		return nil
	}
}

// WithNonceFields names fields treated as single-use tokens.
func WithNonceFields(fields ...string) Option {
	return func(s *Scanner) error {
		s.config.NonceFields = append(s.config.NonceFields, fields...)
		return nil
	}
}

// WithAutoNonce toggles automatic token-field detection.
func WithAutoNonce(auto bool) Option {
	return func(s *Scanner) error {
		s.config.AutoNonce = auto
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Scanner) error {
		s.config.UserAgent = ua
		return nil
	}
}

// WithHeaders sets custom headers for all requests.
func WithHeaders(headers map[string]string) Option {
	return func(s *Scanner) error {
		s.config.Headers = headers
		return nil
	}
}

// WithBrowser enables headless-browser page fetching.
func WithBrowser(cfg browser.Config) Option {
	return func(s *Scanner) error {
		s.config.UseBrowser = true
		s.config.Browser = cfg
		return nil
	}
}

// WithCheckpoint persists the audited set at the given path between runs.
func WithCheckpoint(path string) Option {
	return func(s *Scanner) error {
		s.config.CheckpointPath = path
		return nil
	}
}

// WithOutputFile sets the report destination.
func WithOutputFile(path string) Option {
	return func(s *Scanner) error {
		s.config.OutputFile = path
		return nil
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(s *Scanner) error {
		s.config = cfg
		return nil
	}
}

// WithVerbose enables verbose logging.
func WithVerbose(verbose bool) Option {
	return func(s *Scanner) error {
		s.config.Verbose = verbose
		return nil
	}
}

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(s *Scanner) error {
		s.config.Debug = debug
		return nil
	}
}

// WithMutationStrategy overrides the per-field mutation policy.
func WithMutationStrategy(strategy mutate.Strategy) Option {
	return func(s *Scanner) error {
		s.strategy = strategy
		return nil
	}
}

// WithSampleFiller overrides the typed-field sample filler.
func WithSampleFiller(filler mutate.Filler) Option {
	return func(s *Scanner) error {
		s.filler = filler
		return nil
	}
}

// WithNonceFetcher overrides the fetcher used for nonce refreshes, for
// targets whose token pages need special handling.
func WithNonceFetcher(fetcher nonce.Fetcher) Option {
	return func(s *Scanner) error {
		s.nonceFetcher = fetcher
		return nil
	}
}
