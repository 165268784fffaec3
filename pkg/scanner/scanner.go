// Package scanner wires the form parser, mutation generator, audit
// deduplication, and nonce-aware transport into one audit run against a
// target page.
package scanner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/PentesterFlow/OpenAuditor/internal/audit"
	"github.com/PentesterFlow/OpenAuditor/internal/browser"
	"github.com/PentesterFlow/OpenAuditor/internal/errors"
	"github.com/PentesterFlow/OpenAuditor/internal/form"
	"github.com/PentesterFlow/OpenAuditor/internal/logger"
	"github.com/PentesterFlow/OpenAuditor/internal/metrics"
	"github.com/PentesterFlow/OpenAuditor/internal/mutate"
	"github.com/PentesterFlow/OpenAuditor/internal/nonce"
	"github.com/PentesterFlow/OpenAuditor/internal/output"
	"github.com/PentesterFlow/OpenAuditor/internal/parser"
	"github.com/PentesterFlow/OpenAuditor/internal/ratelimit"
	"github.com/PentesterFlow/OpenAuditor/internal/transport"
)

// Scanner is the audit orchestrator.
type Scanner struct {
	config Config

	client     *transport.Client
	browser    *browser.Fetcher
	limiter    *ratelimit.Limiter
	mutator    *mutate.Mutator
	audited    *audit.Set
	checkpoint *audit.CheckpointStore
	dispatcher *transport.Dispatcher
	writer     *output.Writer

	// Overridable collaborators, set via options before initialization.
	strategy     mutate.Strategy
	filler       mutate.Filler
	nonceFetcher nonce.Fetcher

	log     *logger.Logger
	metrics *metrics.Collector
	running atomic.Bool
}

// New creates a scanner with the given options.
func New(opts ...Option) (*Scanner, error) {
	s := &Scanner{
		config: DefaultConfig(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logLevel := logger.WarnLevel
	if s.config.Debug {
		logLevel = logger.DebugLevel
	} else if s.config.Verbose {
		logLevel = logger.InfoLevel
	}
	s.log = logger.New(logger.Config{
		Level:     logLevel,
		Pretty:    true,
		Component: "scanner",
	})

	s.metrics = metrics.New()
	s.writer = output.NewWriter(s.config.Target)
	s.limiter = ratelimit.NewLimiter(s.config.RateLimit, s.config.Burst)
	s.mutator = mutate.NewMutator(s.strategy, s.filler, s.log)

	s.audited = audit.NewSet(s.config.EstimatedTargets)
	if s.config.CheckpointPath != "" {
		store, err := audit.NewCheckpointStore(s.config.CheckpointPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open checkpoint: %w", err)
		}
		if err := store.Load(s.audited); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		s.checkpoint = store
	}

	clientConfig := transport.DefaultConfig()
	clientConfig.Timeout = s.config.Timeout
	clientConfig.Headers = s.config.Headers
	clientConfig.SkipTLSVerify = s.config.SkipTLSVerify
	if s.config.UserAgent != "" {
		clientConfig.UserAgent = s.config.UserAgent
	}
	s.client = transport.NewClient(clientConfig, s.limiter)

	if s.config.UseBrowser {
		browserConfig := s.config.Browser
		if browserConfig.UserAgent == "" {
			browserConfig.UserAgent = s.config.UserAgent
		}
		if len(browserConfig.Headers) == 0 {
			browserConfig.Headers = s.config.Headers
		}
		b, err := browser.NewFetcher(browserConfig)
		if err != nil {
			s.closeCheckpoint()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		s.browser = b
	}

	if s.nonceFetcher == nil {
		if s.browser != nil {
			s.nonceFetcher = s.browser
		} else {
			s.nonceFetcher = s.client
		}
	}

	coordinator := nonce.NewCoordinator(s.nonceFetcher, s.log)
	s.dispatcher = transport.NewDispatcher(s.client, coordinator,
		s.config.Workers, s.onResult, s.log)

	return s, nil
}

// Run executes one audit: fetch the target page, parse its forms,
// generate variants per seed, and dispatch everything that survives
// deduplication. It blocks until the submission queue drains.
func (s *Scanner) Run(ctx context.Context) (output.AuditResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return output.AuditResult{}, fmt.Errorf("scanner already running")
	}
	defer s.running.Store(false)

	s.log.WithField("target", s.config.Target).Info("Starting audit")

	body, err := s.fetchPage(ctx, s.config.Target)
	if err != nil {
		return s.finish(), fmt.Errorf("failed to fetch target: %w", err)
	}

	forms := parser.ParseForms(s.config.Target, body)
	if len(forms) == 0 {
		s.log.Warn("No forms found on target page")
		return s.finish(), nil
	}
	s.log.Infof("parsed %d forms", len(forms))

	s.dispatcher.Start(ctx)

	for _, f := range forms {
		s.metrics.RecordFormParsed()
		s.configureNonce(f)
		s.auditForm(ctx, f)
	}

	// Blocks until queued submissions drain; sync dispatches already ran
	// inline above.
	s.dispatcher.Close()

	if s.checkpoint != nil {
		if err := s.checkpoint.Save(s.audited); err != nil {
			s.log.WithError(err).Error("Failed to save checkpoint")
		}
	}

	return s.finish(), nil
}

// auditForm generates and dispatches the variant set for one form.
func (s *Scanner) auditForm(ctx context.Context, f *form.Form) {
	opts := mutate.Options{
		SkipOriginal: s.config.SkipOriginal,
		SkipFields:   s.config.SkipFields,
	}

	for _, seed := range s.config.Seeds {
		variants := s.mutator.Generate(f, seed, opts)
		s.metrics.RecordVariantsGenerated(len(variants))

		for _, v := range variants {
			if ctx.Err() != nil {
				return
			}

			// Original and SampleFilled probe the logical target itself,
			// so one dispatch per canonical identity and class is enough
			// no matter how many pages link to the same form. The key is
			// namespaced by class: both probes still run once each.
			// Injected variants carry distinct values and always go out.
			if v.State == form.Original || v.State == form.SampleFilled {
				key := v.State.String() + "#" + audit.ComputeID(v)
				if !s.audited.CheckAndMark(key) {
					s.metrics.RecordTargetSkipped()
					continue
				}
			}

			if err := s.dispatcher.Dispatch(ctx, v); err != nil {
				s.log.WithAction(v.Action).WithError(err).Warn("Dispatch rejected")
			}
		}
	}
}

// configureNonce marks the form's token field, preferring explicitly
// configured names over auto-detection.
func (s *Scanner) configureNonce(f *form.Form) {
	for _, name := range s.config.NonceFields {
		if err := f.SetNonceField(name); err == nil {
			s.log.WithAction(f.Action).Debugf("nonce field %q (configured)", name)
			return
		}
	}

	if !s.config.AutoNonce {
		return
	}
	if name, ok := nonce.DetectField(f); ok {
		_ = f.SetNonceField(name)
		s.log.WithAction(f.Action).Debugf("nonce field %q (detected)", name)
	}
}

// fetchPage retrieves the target markup, rendered in a browser when one
// is configured.
func (s *Scanner) fetchPage(ctx context.Context, url string) (string, error) {
	if s.browser != nil {
		return s.browser.Fetch(ctx, url)
	}
	return s.client.Fetch(ctx, url)
}

// onResult records every completed or skipped submission.
func (s *Scanner) onResult(r transport.Result) {
	if r.Err != nil {
		s.metrics.RecordSubmissionError()
		if errors.IsNonceRefresh(r.Err) {
			s.metrics.RecordNonceRefresh(false)
		}
		s.writer.AddError(output.ErrorRecord{
			Action:    r.Form.Action,
			State:     r.Form.State.String(),
			Type:      errors.GetErrorType(r.Err).String(),
			Message:   r.Err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	s.metrics.RecordSubmission(r.Response.StatusCode, r.Response.Duration)
	if r.Form.RequiresSyncDispatch() {
		s.metrics.RecordNonceRefresh(true)
	}

	s.writer.AddSubmission(output.SubmissionRecord{
		Action:      r.Form.Action,
		Method:      r.Form.Method,
		State:       r.Form.State.String(),
		Mode:        r.Response.Mode.String(),
		Fields:      r.Form.Values(),
		StatusCode:  r.Response.StatusCode,
		ContentType: r.Response.ContentType,
		Duration:    r.Response.Duration,
		Timestamp:   time.Now(),
	})
}

// finish stamps the metrics snapshot onto the report.
func (s *Scanner) finish() output.AuditResult {
	s.writer.SetStats(s.metrics.Snapshot())
	return s.writer.Result()
}

// WriteReport writes the JSON report to the configured destination.
func (s *Scanner) WriteReport() error {
	return s.writer.WriteFile(s.config.OutputFile)
}

// Stats returns the current metrics snapshot.
func (s *Scanner) Stats() metrics.Snapshot {
	return s.metrics.Snapshot()
}

// Audited returns the shared audited set, for callers that run several
// scans in one process and want the at-most-once guarantee to span them.
func (s *Scanner) Audited() *audit.Set {
	return s.audited
}

// Close releases the scanner's resources.
func (s *Scanner) Close() error {
	var firstErr error
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			firstErr = err
		}
	}
	if err := s.closeCheckpoint(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (s *Scanner) closeCheckpoint() error {
	if s.checkpoint == nil {
		return nil
	}
	err := s.checkpoint.Close()
	s.checkpoint = nil
	return err
}
