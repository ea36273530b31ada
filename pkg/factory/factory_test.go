package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyllm/go-polyllm/pkg/llm"
)

func TestListProvidersIncludesBuiltins(t *testing.T) {
	names := ListProviders()
	assert.Subset(t, names, []string{"openai", "xai", "anthropic", "google", "mock"})
}

func TestCreateClientByProvider(t *testing.T) {
	f := New()

	client, err := f.CreateClient(llm.ClientConfig{
		Provider: "anthropic",
		Model:    "claude-sonnet-4-20250514",
		APIKey:   "test-key",
	})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	assert.Equal(t, "anthropic", client.GetModelInfo().Provider)
}

func TestCreateClientInfersProviderFromModel(t *testing.T) {
	tests := []struct {
		model    string
		provider string
	}{
		{"gpt-4o-mini", "openai"},
		{"o3-mini", "openai"},
		{"grok-3-mini", "xai"},
		{"claude-sonnet-4-20250514", "anthropic"},
		{"gemini-2.0-flash", "google"},
		{"mock-model", "mock"},
	}

	f := New()
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.provider, ProviderForModel(tt.model))

			client, err := f.CreateClient(llm.ClientConfig{
				Model:  tt.model,
				APIKey: "test-key",
			})
			require.NoError(t, err)
			defer func() { _ = client.Close() }()
			assert.Equal(t, tt.provider, client.GetModelInfo().Provider)
		})
	}
}

func TestCreateClientUnknownModel(t *testing.T) {
	f := New()
	_, err := f.CreateClient(llm.ClientConfig{Model: "mystery-9000"})
	require.Error(t, err)

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "unknown_provider", llmErr.Code)
}

func TestCreateClientUnregisteredProvider(t *testing.T) {
	f := New()
	_, err := f.CreateClient(llm.ClientConfig{Provider: "acme", Model: "acme-1"})
	require.Error(t, err)

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "unsupported_provider", llmErr.Code)
}

func TestRegisterProviderOverride(t *testing.T) {
	RegisterProvider("custom-test", func(config llm.ClientConfig) (llm.Client, error) {
		return nil, &llm.Error{Code: "custom_constructor", Type: llm.ErrorTypeValidation}
	})

	_, err := New().CreateClient(llm.ClientConfig{Provider: "custom-test", Model: "x"})
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "custom_constructor", llmErr.Code)
}
