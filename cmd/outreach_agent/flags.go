package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/browser"
	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/forms"
	"github.com/jonathan/outreach-agent/internal/llm"
)

// configFlags are the flags shared by commands that drive a browser.
// Any flag set explicitly overrides the config file.
type configFlags struct {
	configPath string

	input       string
	output      string
	databaseURL string
	logDir      string

	senderName  string
	senderEmail string
	senderPhone string
	template    string

	minDelay int
	maxDelay int
	timeout  int

	patterns        []string
	linkPhrases     []string
	useFallback     bool
	fallbackBackend string
	apiKey          string

	showBrowser bool
	verbose     bool
}

func (f *configFlags) register(cmd *cobra.Command) {
	// Config file flag (processed first)
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Target list CSV with website_url and restaurant_name columns")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output list CSV, also the resume checkpoint")
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL URL to mirror results to (optional, defaults to DATABASE_URL env var)")
	cmd.Flags().StringVar(&f.logDir, "log-dir", "", "Directory for per-run log files")

	cmd.Flags().StringVarP(&f.senderName, "name", "n", "", "Sender name")
	cmd.Flags().StringVar(&f.senderEmail, "email", "", "Sender email")
	cmd.Flags().StringVar(&f.senderPhone, "phone", "", "Sender phone, used only for required phone fields")
	cmd.Flags().StringVarP(&f.template, "message", "m", "", "Message template containing "+config.NamePlaceholder)

	cmd.Flags().IntVar(&f.minDelay, "min-delay", 0, "Minimum seconds to wait between targets")
	cmd.Flags().IntVar(&f.maxDelay, "max-delay", 0, "Maximum seconds to wait between targets")
	cmd.Flags().IntVar(&f.timeout, "timeout", 0, "Seconds allowed for each page load or element action")

	cmd.Flags().StringSliceVar(&f.patterns, "contact-pattern", nil, "Extra contact page path to probe (repeatable)")
	cmd.Flags().StringSliceVar(&f.linkPhrases, "link-text", nil, "Extra contact link text to follow (repeatable)")
	cmd.Flags().BoolVar(&f.useFallback, "fallback", false, "Ask a language model to identify fields the rules miss")
	cmd.Flags().StringVar(&f.fallbackBackend, "fallback-backend", "", "Fallback backend, e.g. gemini or gemini:gemini-2.5-flash")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	cmd.Flags().BoolVar(&f.showBrowser, "show-browser", false, "Run the browser with a visible window")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed debug information")
}

// resolve builds the effective configuration: config file, then explicitly
// set flags, then defaults, then environment for secrets. It does not validate.
func (f *configFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Only override if the flag was explicitly set
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputCSV = f.input
	}
	if flags.Changed("output") {
		cfg.OutputCSV = f.output
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = f.logDir
	}
	if flags.Changed("name") {
		cfg.SenderName = f.senderName
	}
	if flags.Changed("email") {
		cfg.SenderEmail = f.senderEmail
	}
	if flags.Changed("phone") {
		cfg.SenderPhone = f.senderPhone
	}
	if flags.Changed("message") {
		cfg.MessageTemplate = f.template
	}
	if flags.Changed("min-delay") {
		cfg.SetMinDelay(f.minDelay)
	}
	if flags.Changed("max-delay") {
		cfg.MaxDelaySeconds = f.maxDelay
	}
	if flags.Changed("timeout") {
		cfg.TimeoutSeconds = f.timeout
	}
	if flags.Changed("contact-pattern") {
		cfg.CustomContactPatterns = append(cfg.CustomContactPatterns, f.patterns...)
	}
	if flags.Changed("link-text") {
		cfg.CustomLinkTextPatterns = append(cfg.CustomLinkTextPatterns, f.linkPhrases...)
	}
	if flags.Changed("fallback") {
		cfg.UseFallbackDetection = f.useFallback
	}
	if flags.Changed("fallback-backend") {
		cfg.FallbackBackend = f.fallbackBackend
	}
	if flags.Changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if flags.Changed("show-browser") {
		cfg.ShowBrowser = f.showBrowser
	}
	if flags.Changed("verbose") {
		cfg.Verbose = f.verbose
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// newFallback returns the Tier 2 strategy, or nil when fallback is disabled or
// has no API key. The returned cleanup releases the model client.
func newFallback(ctx context.Context, cfg config.Config, logger *zap.Logger) (forms.FallbackStrategy, func(), error) {
	noop := func() {}
	if !cfg.UseFallbackDetection {
		return nil, noop, nil
	}
	if cfg.APIKey == "" {
		logger.Warn("Fallback detection enabled but no API key found (set GEMINI_API_KEY); continuing with rule-based detection only")
		return nil, noop, nil
	}

	llmConfig, err := llm.ConfigForBackend(cfg.FallbackBackend)
	if err != nil {
		return nil, noop, fmt.Errorf("invalid fallback backend: %w", err)
	}
	client, err := llm.NewClient(ctx, llmConfig, cfg.APIKey)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to create fallback client: %w", err)
	}
	logger.Info("Fallback detection enabled", zap.String("model", client.GetModel(llm.TierLite)))

	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Debug("Failed to close fallback client", zap.Error(err))
		}
	}
	return forms.NewLLMStrategy(client, llm.TierLite), cleanup, nil
}

// newSession starts the browser described by cfg.
func newSession(cfg config.Config, logger *zap.Logger) (*browser.ChromeSession, error) {
	session, err := browser.NewChromeSession(browser.Options{
		Headless:   !cfg.ShowBrowser,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.Timeout(),
		SettleTime: cfg.Settle(),
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return session, nil
}
