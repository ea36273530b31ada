// Package openai provides the OpenAI parameterization of the shared
// OpenAI-compatible wire codec.
package openai

import (
	"github.com/polyllm/go-polyllm/pkg/llm"
	"github.com/polyllm/go-polyllm/pkg/providers/openaicompat"
)

const DefaultBaseURL = "https://api.openai.com"

// NewClient creates an OpenAI client.
func NewClient(config llm.ClientConfig) (*openaicompat.Client, error) {
	return openaicompat.NewClient(config, openaicompat.Options{
		Provider:        "openai",
		DefaultBaseURL:  DefaultBaseURL,
		DefaultModel:    llm.DefaultOpenAIModel,
		ReasoningEffort: ReasoningEffort,
	})
}

// ReasoningEffort maps an integer thinking budget onto OpenAI's effort
// scale. The thresholds are part of the provider contract: budgets under
// 5000 tokens map to low, up to 20000 to medium, above that to high.
func ReasoningEffort(budgetTokens int) string {
	switch {
	case budgetTokens < 5000:
		return "low"
	case budgetTokens <= 20000:
		return "medium"
	default:
		return "high"
	}
}
