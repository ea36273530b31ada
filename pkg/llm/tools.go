// Tool and tool call types and functionality
package llm

import "context"

// Tool represents a function tool that can be called by the LLM
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction defines the function specification for a tool
type ToolFunction struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters"`
}

// NewTool creates a function tool with the given name, description and
// parameter JSON schema.
func NewTool(name, description string, parameters interface{}) Tool {
	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// ToolCall represents a tool call made by the LLM
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction represents the function call details
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCallResult carries the outcome of one externally executed tool call.
// Expected domain errors are reported through IsError rather than a Go
// error so the model can see and recover from them.
type ToolCallResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// ToolExecutor resolves a single tool call. It is supplied by the caller
// and invoked by the tool loop, sequentially and in provider order. A
// returned Go error aborts the loop; domain failures should set IsError on
// the result instead.
type ToolExecutor func(ctx context.Context, call ToolCall) (ToolCallResult, error)
