// Core request and response types
package llm

import "strconv"

// ChatRequest represents a chat completion request (provider-agnostic)
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	SystemPrompt   string          `json:"system_prompt,omitempty"`
	Tools          []Tool          `json:"tools,omitempty"`
	Temperature    *float32        `json:"temperature,omitempty"`
	TopP           *float32        `json:"top_p,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	Stop           []string        `json:"stop,omitempty"`
	ThinkingBudget *int            `json:"thinking_budget,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	EnableCaching  bool            `json:"enable_caching,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
}

// Validate checks the request invariants that hold for every provider.
// Provider-specific role alternation rules are enforced by each codec.
func (r ChatRequest) Validate() error {
	if r.Model == "" {
		return &Error{Code: "missing_model", Message: "model is required", Type: ErrorTypeValidation}
	}
	if len(r.Messages) == 0 {
		return &Error{Code: "empty_messages", Message: "message sequence must be non-empty", Type: ErrorTypeValidation}
	}
	for i, msg := range r.Messages {
		if err := msg.Validate(); err != nil {
			return &Error{
				Code:    "invalid_message",
				Message: "message " + strconv.Itoa(i) + ": " + err.Error(),
				Type:    ErrorTypeValidation,
			}
		}
	}
	return nil
}

// DeepCopy creates a copy of the request whose message buffer shares no
// mutable state with the original.
func (r ChatRequest) DeepCopy() ChatRequest {
	out := r
	if len(r.Messages) > 0 {
		out.Messages = make([]Message, len(r.Messages))
		for i, msg := range r.Messages {
			out.Messages[i] = msg.DeepCopy()
		}
	}
	return out
}

// ChatResponse represents a normalized, complete chat completion response.
// Every provider codec produces this shape regardless of wire format.
type ChatResponse struct {
	ID         string     `json:"id"`
	Model      string     `json:"model"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason,omitempty"`
	Usage      Usage      `json:"usage"`
}

// Stop reasons shared across providers after normalization.
const (
	StopReasonStop      = "stop"
	StopReasonLength    = "length"
	StopReasonToolCalls = "tool_calls"
)

// HasToolCalls reports whether the response asks for tool execution.
func (r ChatResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// AssistantMessage converts the response into an assistant message that can
// be appended to a conversation before feeding back tool results.
func (r ChatResponse) AssistantMessage() Message {
	return Message{
		Role:      RoleAssistant,
		Text:      r.Content,
		ToolCalls: r.ToolCalls,
	}
}
