// Package providers holds configuration shared by concrete provider adapters.
package providers

import "time"

// AnthropicConfig configures the Anthropic provider adapter.
type AnthropicConfig struct {
	APIKey    string        `json:"api_key" yaml:"api_key"`
	BaseURL   string        `json:"base_url" yaml:"base_url"`
	Model     string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxTokens int           `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}
