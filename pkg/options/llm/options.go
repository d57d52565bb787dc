// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/coursechat-io/coursechat/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions defines configuration for an LLM provider endpoint.
type ProviderOptions struct {
	// Provider is the provider name (anthropic, openai, ollama).
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL is the API base address.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey is the API key (required for anthropic and openai).
	APIKey string `json:"api-key" mapstructure:"api-key"`

	// Model is the model name to use.
	Model string `json:"model" mapstructure:"model"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the maximum number of request retries.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Organization is the organization ID (openai, optional).
	Organization string `json:"organization" mapstructure:"organization"`
}

// NewProviderOptions creates default provider options.
func NewProviderOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "anthropic",
		BaseURL:    "https://api.anthropic.com",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// NewChatOptions creates defaults for the answer-generation provider.
func NewChatOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "claude-sonnet-4-20250514"
	return opts
}

// NewEmbeddingOptions creates defaults for the embedding provider. Embeddings
// default to a local Ollama instance so the service runs without a second
// API key.
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "ollama",
		BaseURL:    "http://localhost:11434",
		Model:      "nomic-embed-text",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// ToConfigMap converts the options into the map consumed by provider
// factories.
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":     o.BaseURL,
		"api_key":      o.APIKey,
		"embed_model":  o.Model,
		"chat_model":   o.Model,
		"timeout":      o.Timeout,
		"max_retries":  o.MaxRetries,
		"organization": o.Organization,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Provider, options.Join(prefixes...)+"llm.provider", o.Provider, "LLM provider (anthropic, openai, ollama).")
	fs.StringVar(&o.BaseURL, options.Join(prefixes...)+"llm.base-url", o.BaseURL, "LLM API base URL.")
	fs.StringVar(&o.APIKey, options.Join(prefixes...)+"llm.api-key", o.APIKey, "LLM API key.")
	fs.StringVar(&o.Model, options.Join(prefixes...)+"llm.model", o.Model, "LLM model name.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"llm.timeout", o.Timeout, "LLM request timeout.")
	fs.IntVar(&o.MaxRetries, options.Join(prefixes...)+"llm.max-retries", o.MaxRetries, "LLM maximum number of retries.")
	fs.StringVar(&o.Organization, options.Join(prefixes...)+"llm.organization", o.Organization, "LLM organization ID (optional).")
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("base-url is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	// Hosted providers require credentials.
	if (o.Provider == "anthropic" || o.Provider == "openai") && o.APIKey == "" {
		errs = append(errs, fmt.Errorf("api-key is required for %s provider", o.Provider))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	return errs
}

// Complete completes the LLM provider options with defaults.
func (o *ProviderOptions) Complete() error {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	return nil
}
