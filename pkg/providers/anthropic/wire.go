// Anthropic Messages wire format structures and conversion
package anthropic

import (
	"encoding/base64"

	json "github.com/goccy/go-json"

	"github.com/polyllm/go-polyllm/pkg/llm"
)

// jsonResponseToolName is the synthetic forced tool used to emulate
// schema-constrained output; Anthropic has no native equivalent of
// OpenAI's json_schema response format.
const jsonResponseToolName = "json_response"

// messagesRequest mirrors the /v1/messages request body.
type messagesRequest struct {
	Model         string          `json:"model"`
	System        []systemBlock   `json:"system,omitempty"`
	Messages      []wireMessage   `json:"messages"`
	MaxTokens     int             `json:"max_tokens"`
	Temperature   *float32        `json:"temperature,omitempty"`
	TopP          *float32        `json:"top_p,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	Thinking      *thinkingConfig `json:"thinking,omitempty"`
	Tools         []wireTool      `json:"tools,omitempty"`
	ToolChoice    *toolChoice     `json:"tool_choice,omitempty"`
}

type systemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

type cacheControl struct {
	Type string `json:"type"`
}

type thinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type wireTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type wireMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// contentBlock is the union of every block shape the Messages API uses;
// Type picks which fields are meaningful.
type contentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID     string `json:"tool_use_id,omitempty"`
	ResultContent string `json:"content,omitempty"`
	IsError       bool   `json:"is_error,omitempty"`

	// image
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// messagesResponse mirrors the /v1/messages response body.
type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      wireUsage      `json:"usage"`
}

type wireUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// Serialize converts a canonical request into the Messages API body.
func (c *Client) Serialize(req llm.ChatRequest, streaming bool) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	wireReq := &messagesRequest{
		Model:         model,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		Stream:        streaming,
	}

	// System prompt is a top-level field; cacheable blocks when caching
	// is requested.
	systemTexts := make([]string, 0, 1)
	if req.SystemPrompt != "" {
		systemTexts = append(systemTexts, req.SystemPrompt)
	}
	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			systemTexts = append(systemTexts, msg.Text)
		}
	}
	for _, text := range systemTexts {
		block := systemBlock{Type: "text", Text: text}
		if req.EnableCaching {
			block.CacheControl = &cacheControl{Type: "ephemeral"}
		}
		wireReq.System = append(wireReq.System, block)
	}

	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			continue
		}
		wireReq.Messages = append(wireReq.Messages, convertMessage(msg))
	}

	maxTokens := DefaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	if req.ThinkingBudget != nil {
		budget := *req.ThinkingBudget
		wireReq.Thinking = &thinkingConfig{Type: "enabled", BudgetTokens: budget}
		// The API rejects requests whose max_tokens does not exceed the
		// thinking budget; raise it to budget + 4096 in that case.
		if maxTokens <= budget {
			maxTokens = budget + 4096
		}
	}
	wireReq.MaxTokens = maxTokens

	for _, tool := range req.Tools {
		wireReq.Tools = append(wireReq.Tools, wireTool{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: tool.Function.Parameters,
		})
	}

	if req.ResponseFormat != nil && req.ResponseFormat.Type != llm.ResponseFormatText {
		if !usesSchemaEmulation(req) {
			return nil, llm.NewCapabilityError("anthropic", "json output without a schema")
		}
		wireReq.Tools = append(wireReq.Tools, wireTool{
			Name:        jsonResponseToolName,
			Description: "Record the response in the required JSON shape.",
			InputSchema: req.ResponseFormat.JSONSchema.Schema,
		})
		wireReq.ToolChoice = &toolChoice{Type: "tool", Name: jsonResponseToolName}
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, &llm.Error{
			Code:    "request_error",
			Message: "failed to serialize request: " + err.Error(),
			Type:    llm.ErrorTypeValidation,
		}
	}
	return body, nil
}

func convertMessage(msg llm.Message) wireMessage {
	switch {
	case msg.IsToolResult():
		// There is no dedicated tool role; results re-enter the
		// conversation as user messages holding a tool_result block.
		return wireMessage{
			Role: "user",
			Content: []contentBlock{{
				Type:          "tool_result",
				ToolUseID:     msg.ToolCallID,
				ResultContent: msg.Text,
				IsError:       msg.ToolResultError,
			}},
		}
	case msg.HasToolCalls():
		blocks := make([]contentBlock, 0, len(msg.ToolCalls)+1)
		if msg.Text != "" {
			blocks = append(blocks, contentBlock{Type: "text", Text: msg.Text})
		}
		for _, call := range msg.ToolCalls {
			input := call.Function.Arguments
			if input == "" {
				input = "{}"
			}
			blocks = append(blocks, contentBlock{
				Type:  "tool_use",
				ID:    call.ID,
				Name:  call.Function.Name,
				Input: json.RawMessage(input),
			})
		}
		return wireMessage{Role: "assistant", Content: blocks}
	default:
		blocks := make([]contentBlock, 0, len(msg.Attachments)+1)
		if msg.Text != "" {
			blocks = append(blocks, contentBlock{Type: "text", Text: msg.Text})
		}
		for _, att := range msg.Attachments {
			blocks = append(blocks, contentBlock{
				Type: "image",
				Source: &imageSource{
					Type:      "base64",
					MediaType: att.MimeType,
					Data:      base64.StdEncoding.EncodeToString(att.Data),
				},
			})
		}
		role := "user"
		if msg.Role == llm.RoleAssistant {
			role = "assistant"
		}
		return wireMessage{Role: role, Content: blocks}
	}
}

func convertResponse(wireResp messagesResponse) *llm.ChatResponse {
	resp := &llm.ChatResponse{
		ID:         wireResp.ID,
		Model:      wireResp.Model,
		StopReason: normalizeStopReason(wireResp.StopReason),
		Usage:      convertUsage(wireResp.Usage),
	}

	for _, block := range wireResp.Content {
		switch block.Type {
		case "text":
			resp.Content += block.Text
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: llm.ToolCallFunction{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
		}
	}
	return resp
}

func convertUsage(u wireUsage) llm.Usage {
	return llm.Usage{
		InputTokens:      u.InputTokens,
		OutputTokens:     u.OutputTokens,
		CacheReadTokens:  u.CacheReadInputTokens,
		CacheWriteTokens: u.CacheCreationInputTokens,
	}
}

func normalizeStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence", "":
		return llm.StopReasonStop
	case "max_tokens":
		return llm.StopReasonLength
	case "tool_use":
		return llm.StopReasonToolCalls
	default:
		return reason
	}
}

func usesSchemaEmulation(req llm.ChatRequest) bool {
	return req.ResponseFormat != nil &&
		req.ResponseFormat.Type == llm.ResponseFormatJSONSchema &&
		req.ResponseFormat.JSONSchema != nil
}

// resolveJSONResponseTool rewrites the forced json_response tool call
// into plain content, hiding the emulation from callers.
func resolveJSONResponseTool(resp *llm.ChatResponse) {
	remaining := resp.ToolCalls[:0]
	for _, call := range resp.ToolCalls {
		if call.Function.Name == jsonResponseToolName {
			resp.Content = call.Function.Arguments
			continue
		}
		remaining = append(remaining, call)
	}
	resp.ToolCalls = remaining
	if len(resp.ToolCalls) == 0 {
		resp.ToolCalls = nil
		if resp.StopReason == llm.StopReasonToolCalls {
			resp.StopReason = llm.StopReasonStop
		}
	}
}
