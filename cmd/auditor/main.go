package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/PentesterFlow/OpenAuditor/internal/audit"
	"github.com/PentesterFlow/OpenAuditor/internal/shutdown"
	"github.com/PentesterFlow/OpenAuditor/pkg/scanner"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	verbose    bool
	debug      bool

	// Audit flags
	seeds          []string
	workers        int
	timeout        int
	rateLimit      float64
	burst          int
	skipOriginal   bool
	skipFields     []string
	nonceFields    []string
	noAutoNonce    bool
	userAgent      string
	headers        []string
	useBrowser     bool
	checkpointPath string
	outputFile     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "openauditor",
		Short: "OpenAuditor - Form Mutation Auditor",
		Long: `OpenAuditor - A form-mutation engine for web application security testing.

Parses every form on a target page, generates payload-injected, original-value,
and sample-filled submission variants, and dispatches them with at-most-once
deduplication per logical target. Forms carrying anti-CSRF tokens are refetched
synchronously before each submission.`,
		Version: version,
	}

	auditCmd := &cobra.Command{
		Use:   "audit [target]",
		Short: "Audit the forms on a target page",
		Long:  "Fetch a target page, mutate every form on it, and submit the variants.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAudit,
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear a checkpoint",
		Long:  "Clear the audited-target checkpoint so the next run re-audits everything.",
		RunE:  runReset,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug mode")

	auditCmd.Flags().StringArrayVarP(&seeds, "seed", "s", nil, "Payload seed (repeatable)")
	auditCmd.Flags().IntVarP(&workers, "workers", "w", 10, "Number of concurrent submission workers")
	auditCmd.Flags().IntVarP(&timeout, "timeout", "t", 10, "Request timeout in seconds")
	auditCmd.Flags().Float64VarP(&rateLimit, "rate-limit", "r", 20, "Requests per second")
	auditCmd.Flags().IntVar(&burst, "burst", 5, "Rate limit burst size")
	auditCmd.Flags().BoolVar(&skipOriginal, "skip-original", false, "Skip original-value and sample-filled variants")
	auditCmd.Flags().StringArrayVar(&skipFields, "skip-field", nil, "Field never injected with payloads (repeatable)")
	auditCmd.Flags().StringArrayVar(&nonceFields, "nonce-field", nil, "Field treated as a single-use token (repeatable)")
	auditCmd.Flags().BoolVar(&noAutoNonce, "no-auto-nonce", false, "Disable automatic token-field detection")
	auditCmd.Flags().StringVar(&userAgent, "user-agent", "", "User-Agent header")
	auditCmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Custom header, 'Name: value' (repeatable)")
	auditCmd.Flags().BoolVar(&useBrowser, "browser", false, "Render the target page in a headless browser")
	auditCmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "Checkpoint file for the audited set")
	auditCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	resetCmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "Checkpoint file to clear")
	resetCmd.MarkFlagRequired("checkpoint")

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(resetCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAudit(cmd *cobra.Command, args []string) error {
	target := args[0]

	config := scanner.DefaultConfig()
	if configFile != "" {
		fileConfig, err := scanner.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
		config = fileConfig
	}
	config.Target = target

	// Command-line flags take precedence over the config file.
	if cmd.Flags().Changed("seed") {
		config.Seeds = seeds
	}
	if cmd.Flags().Changed("workers") {
		config.Workers = workers
	}
	if cmd.Flags().Changed("timeout") {
		config.Timeout = time.Duration(timeout) * time.Second
	}
	if cmd.Flags().Changed("rate-limit") {
		config.RateLimit = rateLimit
	}
	if cmd.Flags().Changed("burst") {
		config.Burst = burst
	}
	if cmd.Flags().Changed("skip-original") {
		config.SkipOriginal = skipOriginal
	}
	if cmd.Flags().Changed("browser") {
		config.UseBrowser = useBrowser
	}
	if cmd.Flags().Changed("checkpoint") {
		config.CheckpointPath = checkpointPath
	}
	if cmd.Flags().Changed("output") {
		config.OutputFile = outputFile
	}
	if userAgent != "" {
		config.UserAgent = userAgent
	}
	if noAutoNonce {
		config.AutoNonce = false
	}
	config.SkipFields = append(config.SkipFields, skipFields...)
	config.NonceFields = append(config.NonceFields, nonceFields...)
	config.Verbose = verbose
	config.Debug = debug

	if len(headers) > 0 {
		parsed, err := parseHeaders(headers)
		if err != nil {
			return err
		}
		if config.Headers == nil {
			config.Headers = make(map[string]string)
		}
		for k, v := range parsed {
			config.Headers[k] = v
		}
	}

	s, err := scanner.New(scanner.WithConfig(config))
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	handler := shutdown.New(config.Timeout * 2)
	handler.Register("scanner", func(ctx context.Context) error {
		return s.Close()
	})

	result, runErr := s.Run(handler.Context())
	if err := s.WriteReport(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write report: %v\n", err)
	}
	handler.Shutdown()

	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(os.Stderr, "Audited %s: %d forms, %d variants, %d submissions (%d failed), %d duplicates skipped\n",
		target,
		result.Stats.FormsParsed,
		result.Stats.VariantsGenerated,
		result.Stats.SubmissionsTotal,
		result.Stats.SubmissionsFailed,
		result.Stats.TargetsSkipped)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	store, err := audit.NewCheckpointStore(checkpointPath)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	fmt.Printf("Cleared checkpoint %s\n", checkpointPath)
	return nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out, nil
}
