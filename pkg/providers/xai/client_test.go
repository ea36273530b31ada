package xai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyllm/go-polyllm/pkg/llm"
)

func TestReasoningEffort(t *testing.T) {
	// Grok has no medium tier.
	assert.Equal(t, "low", ReasoningEffort(0))
	assert.Equal(t, "low", ReasoningEffort(9999))
	assert.Equal(t, "high", ReasoningEffort(10000))
	assert.Equal(t, "high", ReasoningEffort(50000))
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(llm.ClientConfig{APIKey: "test-key"})
	require.NoError(t, err)

	info := client.GetModelInfo()
	assert.Equal(t, "xai", info.Provider)
	assert.Equal(t, llm.DefaultXAIModel, info.Name)
}
