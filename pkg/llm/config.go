// Configuration types and loading helpers
package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultXAIModel       = "grok-3-mini"
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultGoogleModel    = "gemini-2.0-flash"
)

// DefaultTimeout bounds one completion call end to end, including retries.
const DefaultTimeout = 3 * time.Minute

// ClientConfig holds configuration for creating LLM clients
type ClientConfig struct {
	Provider string        `json:"provider" yaml:"provider"` // openai, xai, anthropic, google
	Model    string        `json:"model" yaml:"model"`
	APIKey   string        `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL  string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Project and Location scope Vertex-mode Google requests. They are
	// ignored by every other provider.
	Project  string `json:"project,omitempty" yaml:"project,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`

	// TokenSupplier switches the Google provider into Vertex mode (bearer
	// auth) when set. Not serializable; wire it up in code.
	TokenSupplier TokenSupplier `json:"-" yaml:"-"`

	// Extra carries provider-specific settings
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// parseTimeoutFromEnv parses timeout from environment variable with fallback to default
func parseTimeoutFromEnv(envVar string, defaultTimeout time.Duration) time.Duration {
	if timeoutStr := os.Getenv(envVar); timeoutStr != "" {
		if timeoutSecs, err := strconv.Atoi(timeoutStr); err == nil && timeoutSecs > 0 {
			return time.Duration(timeoutSecs) * time.Second
		}
	}
	return defaultTimeout
}

// ConfigFromEnv builds a ClientConfig from environment variables, loading a
// .env file first when one exists. Providers are probed in a fixed order;
// the first one with credentials wins.
func ConfigFromEnv() (ClientConfig, error) {
	_ = godotenv.Load()

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		return ClientConfig{
			Provider: "openai",
			Model:    envOr("OPENAI_MODEL", DefaultOpenAIModel),
			APIKey:   apiKey,
			BaseURL:  os.Getenv("OPENAI_BASE_URL"),
			Timeout:  parseTimeoutFromEnv("OPENAI_TIMEOUT", DefaultTimeout),
		}, nil
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		return ClientConfig{
			Provider: "anthropic",
			Model:    envOr("ANTHROPIC_MODEL", DefaultAnthropicModel),
			APIKey:   apiKey,
			Timeout:  parseTimeoutFromEnv("ANTHROPIC_TIMEOUT", DefaultTimeout),
		}, nil
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		return ClientConfig{
			Provider: "google",
			Model:    envOr("GEMINI_MODEL", DefaultGoogleModel),
			APIKey:   apiKey,
			Timeout:  parseTimeoutFromEnv("GEMINI_TIMEOUT", DefaultTimeout),
		}, nil
	}
	if apiKey := os.Getenv("XAI_API_KEY"); apiKey != "" {
		return ClientConfig{
			Provider: "xai",
			Model:    envOr("XAI_MODEL", DefaultXAIModel),
			APIKey:   apiKey,
			Timeout:  parseTimeoutFromEnv("XAI_TIMEOUT", DefaultTimeout),
		}, nil
	}

	return ClientConfig{}, &Error{
		Code:    "missing_credentials",
		Message: "no provider API key found in environment",
		Type:    ErrorTypeValidation,
	}
}

// LoadConfigFile reads a ClientConfig from a YAML file.
func LoadConfigFile(path string) (ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("read config file: %w", err)
	}
	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
