// Package xai provides the xAI parameterization of the shared
// OpenAI-compatible wire codec.
package xai

import (
	"github.com/polyllm/go-polyllm/pkg/llm"
	"github.com/polyllm/go-polyllm/pkg/providers/openaicompat"
)

const DefaultBaseURL = "https://api.x.ai"

// NewClient creates an xAI client.
func NewClient(config llm.ClientConfig) (*openaicompat.Client, error) {
	return openaicompat.NewClient(config, openaicompat.Options{
		Provider:        "xai",
		DefaultBaseURL:  DefaultBaseURL,
		DefaultModel:    llm.DefaultXAIModel,
		ReasoningEffort: ReasoningEffort,
	})
}

// ReasoningEffort maps an integer thinking budget onto xAI's effort
// scale. Grok models only expose low and high: budgets under 10000 tokens
// map to low, everything else to high.
func ReasoningEffort(budgetTokens int) string {
	if budgetTokens < 10000 {
		return "low"
	}
	return "high"
}
