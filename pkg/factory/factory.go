package factory

import (
	"fmt"
	"strings"

	"github.com/polyllm/go-polyllm/pkg/llm"
)

// Factory creates LLM clients based on configuration
type Factory struct{}

// New creates a new client factory
func New() *Factory {
	return &Factory{}
}

// CreateClient creates an LLM client based on the configuration. When the
// provider is not set explicitly, it is inferred from the model name.
func (f *Factory) CreateClient(config llm.ClientConfig) (llm.Client, error) {
	provider := strings.ToLower(config.Provider)
	if provider == "" {
		provider = ProviderForModel(config.Model)
	}
	if provider == "" {
		return nil, &llm.Error{
			Code:    "unknown_provider",
			Message: fmt.Sprintf("cannot infer provider for model %q; set Provider explicitly", config.Model),
			Type:    llm.ErrorTypeValidation,
		}
	}

	constructor, exists := GetProvider(provider)
	if !exists {
		return nil, &llm.Error{
			Code:    "unsupported_provider",
			Message: fmt.Sprintf("unsupported provider: %s (registered: %s)", provider, strings.Join(ListProviders(), ", ")),
			Type:    llm.ErrorTypeValidation,
		}
	}

	return constructor(config)
}

// ProviderForModel infers the provider from well-known model name
// prefixes. Returns the empty string when no prefix matches.
func ProviderForModel(model string) string {
	model = strings.ToLower(model)
	switch {
	case model == "":
		return ""
	case strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1") ||
		strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4"):
		return "openai"
	case strings.HasPrefix(model, "grok"):
		return "xai"
	case strings.HasPrefix(model, "claude"):
		return "anthropic"
	case strings.HasPrefix(model, "gemini"):
		return "google"
	case strings.HasPrefix(model, "mock"):
		return "mock"
	default:
		return ""
	}
}
