// Package llm provides centralized LLM configuration and client abstractions.
// It backs the optional model-assisted form field identification.
package llm

import (
	"fmt"
	"strings"
)

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks such as labelling form fields
	TierLite ModelTier = "lite"
	// TierStandard is for forms the lite model struggles with
	TierStandard ModelTier = "standard"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider, the only one wired today
const ProviderGemini Provider = "gemini"

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider: c.Provider,
		Models:   make(map[ModelTier]string, len(c.Models)+1),
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}

// ParseBackend parses a fallback backend identifier of the form
// "provider" or "provider:model" (e.g. "gemini:gemini-2.5-flash").
// The model is empty when the identifier names only a provider.
func ParseBackend(identifier string) (Provider, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", "", fmt.Errorf("backend identifier is empty")
	}

	providerPart, model, _ := strings.Cut(identifier, ":")
	provider := Provider(strings.ToLower(strings.TrimSpace(providerPart)))
	if provider != ProviderGemini {
		return "", "", fmt.Errorf("unsupported backend %q", providerPart)
	}
	return provider, strings.TrimSpace(model), nil
}

// ConfigForBackend builds a Config for a backend identifier. A model named in
// the identifier replaces the lite tier model, which field identification uses.
func ConfigForBackend(identifier string) (*Config, error) {
	_, model, err := ParseBackend(identifier)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if model != "" {
		cfg = cfg.WithModel(TierLite, model)
	}
	return cfg, nil
}
