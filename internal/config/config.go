// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/outreach-agent/internal/llm"
)

// NamePlaceholder is replaced by the target's display name when rendering the message.
const NamePlaceholder = "[restaurant_name]"

// Config represents the outreach configuration that can be loaded from a JSON or YAML file.
// Missing values are filled by MergeWithDefaults; CLI flags override file values.
type Config struct {
	// Paths
	InputCSV    string `json:"input_csv,omitempty" yaml:"input_csv,omitempty" validate:"required"`
	OutputCSV   string `json:"output_csv,omitempty" yaml:"output_csv,omitempty" validate:"required"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // Optional PostgreSQL mirror
	LogDir      string `json:"log_dir,omitempty" yaml:"log_dir,omitempty"`

	// Sender identity
	SenderName      string `json:"sender_name,omitempty" yaml:"sender_name,omitempty" validate:"required"`
	SenderEmail     string `json:"sender_email,omitempty" yaml:"sender_email,omitempty" validate:"required,email"`
	SenderPhone     string `json:"sender_phone,omitempty" yaml:"sender_phone,omitempty"` // Only used for required phone fields
	MessageTemplate string `json:"message_template,omitempty" yaml:"message_template,omitempty" validate:"required,contains=[restaurant_name]"`

	// Pacing and timeouts
	MinDelaySeconds           int `json:"min_delay_seconds,omitempty" yaml:"min_delay_seconds,omitempty" validate:"gte=0"`
	MaxDelaySeconds           int `json:"max_delay_seconds,omitempty" yaml:"max_delay_seconds,omitempty" validate:"gtefield=MinDelaySeconds"`
	TimeoutSeconds            int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"gt=0"`
	TargetTimeoutSeconds      int `json:"target_timeout_seconds,omitempty" yaml:"target_timeout_seconds,omitempty" validate:"gt=0"`
	SettleMillis              int `json:"settle_millis,omitempty" yaml:"settle_millis,omitempty" validate:"gte=0"`
	VerificationWindowSeconds int `json:"verification_window_seconds,omitempty" yaml:"verification_window_seconds,omitempty" validate:"gt=0"`

	// Detection
	CustomContactPatterns  []string `json:"custom_contact_patterns,omitempty" yaml:"custom_contact_patterns,omitempty" validate:"dive,required"`
	CustomLinkTextPatterns []string `json:"custom_link_text_patterns,omitempty" yaml:"custom_link_text_patterns,omitempty" validate:"dive,required"`
	ConfirmationPhrases    []string `json:"confirmation_phrases,omitempty" yaml:"confirmation_phrases,omitempty" validate:"dive,required"`
	UseFallbackDetection   bool     `json:"use_fallback_detection,omitempty" yaml:"use_fallback_detection,omitempty"`
	FallbackBackend        string   `json:"fallback_backend,omitempty" yaml:"fallback_backend,omitempty"`
	FallbackTimeoutSeconds int      `json:"fallback_timeout_seconds,omitempty" yaml:"fallback_timeout_seconds,omitempty" validate:"gte=0"`
	APIKey                 string   `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Gemini API key

	// Browser
	ShowBrowser bool   `json:"show_browser,omitempty" yaml:"show_browser,omitempty"` // Run with a visible window
	UserAgent   string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`

	// minDelaySet records an explicit min delay, so zero survives MergeWithDefaults.
	minDelaySet bool
}

// minDelayKey is the file key whose presence marks an explicit min delay.
const minDelayKey = "min_delay_seconds"

// Defaults returns the values used for anything a config file or flag leaves unset.
func Defaults() Config {
	return Config{
		InputCSV:                  "restaurants.csv",
		OutputCSV:                 "restaurants_results.csv",
		LogDir:                    "logs",
		SenderPhone:               "555-123-4567",
		MinDelaySeconds:           20,
		MaxDelaySeconds:           40,
		TimeoutSeconds:            15,
		TargetTimeoutSeconds:      180,
		SettleMillis:              2000,
		VerificationWindowSeconds: 5,
		FallbackBackend:           string(llm.ProviderGemini),
		FallbackTimeoutSeconds:    30,
		UserAgent:                 "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var keys map[string]any
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
		if err := yaml.Unmarshal(data, &keys); err == nil {
			_, cfg.minDelaySet = keys[minDelayKey]
		}
	default:
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
		if err := json.Unmarshal(data, &keys); err == nil {
			_, cfg.minDelaySet = keys[minDelayKey]
		}
	}

	return &cfg, nil
}

// SetMinDelay sets the minimum pause between targets. Unlike a zero left in
// the struct, a zero set here is kept by MergeWithDefaults.
func (c *Config) SetMinDelay(seconds int) {
	c.MinDelaySeconds = seconds
	c.minDelaySet = true
}

// Validate checks that the configuration has usable values.
// It is meant to run after MergeWithDefaults and CLI overrides.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("config error: '%s' failed '%s' validation", first.Field(), first.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.UseFallbackDetection {
		if _, _, err := llm.ParseBackend(c.FallbackBackend); err != nil {
			return fmt.Errorf("config error: 'fallback_backend': %w", err)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.InputCSV == "" {
		result.InputCSV = defaults.InputCSV
	}
	if result.OutputCSV == "" {
		result.OutputCSV = defaults.OutputCSV
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogDir == "" {
		result.LogDir = defaults.LogDir
	}
	if result.SenderName == "" {
		result.SenderName = defaults.SenderName
	}
	if result.SenderEmail == "" {
		result.SenderEmail = defaults.SenderEmail
	}
	if result.SenderPhone == "" {
		result.SenderPhone = defaults.SenderPhone
	}
	if result.MessageTemplate == "" {
		result.MessageTemplate = defaults.MessageTemplate
	}
	if result.FallbackBackend == "" {
		result.FallbackBackend = defaults.FallbackBackend
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}

	// Int fields: use default if zero
	if result.MinDelaySeconds == 0 && !result.minDelaySet {
		result.MinDelaySeconds = defaults.MinDelaySeconds
	}
	if result.MaxDelaySeconds == 0 {
		result.MaxDelaySeconds = defaults.MaxDelaySeconds
	}
	if result.TimeoutSeconds == 0 {
		result.TimeoutSeconds = defaults.TimeoutSeconds
	}
	if result.TargetTimeoutSeconds == 0 {
		result.TargetTimeoutSeconds = defaults.TargetTimeoutSeconds
	}
	if result.SettleMillis == 0 {
		result.SettleMillis = defaults.SettleMillis
	}
	if result.VerificationWindowSeconds == 0 {
		result.VerificationWindowSeconds = defaults.VerificationWindowSeconds
	}
	if result.FallbackTimeoutSeconds == 0 {
		result.FallbackTimeoutSeconds = defaults.FallbackTimeoutSeconds
	}

	// Slices: use default if nil
	if result.CustomContactPatterns == nil {
		result.CustomContactPatterns = defaults.CustomContactPatterns
	}
	if result.CustomLinkTextPatterns == nil {
		result.CustomLinkTextPatterns = defaults.CustomLinkTextPatterns
	}
	if result.ConfirmationPhrases == nil {
		result.ConfirmationPhrases = defaults.ConfirmationPhrases
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// RenderMessage substitutes the display name into the message template.
func (c *Config) RenderMessage(displayName string) string {
	return strings.ReplaceAll(c.MessageTemplate, NamePlaceholder, displayName)
}

// Timeout is the bound on a single navigation or element operation.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TargetTimeout is the bound on processing one target end to end.
func (c *Config) TargetTimeout() time.Duration {
	return time.Duration(c.TargetTimeoutSeconds) * time.Second
}

// Settle is the wait after a page load for dynamic content to render.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.SettleMillis) * time.Millisecond
}

// VerificationWindow is how long to wait for a confirmation signal after submitting.
func (c *Config) VerificationWindow() time.Duration {
	return time.Duration(c.VerificationWindowSeconds) * time.Second
}

// FallbackTimeout bounds one fallback field-identification call.
func (c *Config) FallbackTimeout() time.Duration {
	return time.Duration(c.FallbackTimeoutSeconds) * time.Second
}

// DelayRange returns the bounds of the randomized pause between targets.
func (c *Config) DelayRange() (time.Duration, time.Duration) {
	return time.Duration(c.MinDelaySeconds) * time.Second, time.Duration(c.MaxDelaySeconds) * time.Second
}
