package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PentesterFlow/OpenAuditor/internal/browser"
)

// Config holds all scanner configuration.
type Config struct {
	// Target page whose forms are audited.
	Target string `json:"target" yaml:"target"`

	// Seeds are the payload strings injected per mutation round.
	Seeds []string `json:"seeds" yaml:"seeds"`

	// Number of concurrent submission workers.
	Workers int `json:"workers" yaml:"workers"`

	// Request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Requests per second, applied globally and per domain.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`
	Burst     int     `json:"burst" yaml:"burst"`

	// SkipOriginal drops the Original and SampleFilled variant classes.
	SkipOriginal bool `json:"skip_original" yaml:"skip_original"`

	// SkipFields names fields never injected with payloads.
	SkipFields []string `json:"skip_fields" yaml:"skip_fields"`

	// NonceFields names fields treated as single-use tokens when present
	// on a form. AutoNonce additionally detects common token fields.
	NonceFields []string `json:"nonce_fields" yaml:"nonce_fields"`
	AutoNonce   bool     `json:"auto_nonce" yaml:"auto_nonce"`

	// HTTP client settings.
	UserAgent     string            `json:"user_agent" yaml:"user_agent"`
	Headers       map[string]string `json:"headers" yaml:"headers"`
	SkipTLSVerify bool              `json:"skip_tls_verify" yaml:"skip_tls_verify"`

	// UseBrowser fetches pages with headless Chrome instead of the plain
	// client, for targets that render forms client-side.
	UseBrowser bool           `json:"use_browser" yaml:"use_browser"`
	Browser    browser.Config `json:"browser" yaml:"browser"`

	// CheckpointPath persists the audited set between runs. Empty keeps
	// it memory-only.
	CheckpointPath string `json:"checkpoint_path" yaml:"checkpoint_path"`

	// EstimatedTargets sizes the audited set.
	EstimatedTargets int `json:"estimated_targets" yaml:"estimated_targets"`

	// OutputFile receives the JSON report; empty writes to stdout.
	OutputFile string `json:"output_file" yaml:"output_file"`

	// Logging verbosity.
	Verbose bool `json:"verbose" yaml:"verbose"`
	Debug   bool `json:"debug" yaml:"debug"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Seeds:            []string{`"'><svg/onload=alert(1)>`},
		Workers:          10,
		Timeout:          10 * time.Second,
		RateLimit:        20,
		Burst:            5,
		AutoNonce:        true,
		SkipTLSVerify:    true,
		Browser:          browser.DefaultConfig(),
		EstimatedTargets: 10000,
	}
}

// LoadConfig loads configuration from a YAML or JSON file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for usability.
func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target is required")
	}
	if len(c.Seeds) == 0 {
		return fmt.Errorf("at least one seed payload is required")
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultConfig().RateLimit
	}
	if c.EstimatedTargets < 1 {
		c.EstimatedTargets = DefaultConfig().EstimatedTargets
	}
	return nil
}
