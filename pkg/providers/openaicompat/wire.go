// OpenAI-style wire format structures and conversion
package openaicompat

import (
	"encoding/base64"
	"fmt"

	"github.com/polyllm/go-polyllm/pkg/llm"
)

// chatRequest mirrors the chat/completions request body.
type chatRequest struct {
	Model           string          `json:"model"`
	Messages        []chatMessage   `json:"messages"`
	Temperature     *float32        `json:"temperature,omitempty"`
	TopP            *float32        `json:"top_p,omitempty"`
	MaxTokens       *int            `json:"max_tokens,omitempty"`
	Stop            []string        `json:"stop,omitempty"`
	Stream          bool            `json:"stream,omitempty"`
	StreamOptions   *streamOptions  `json:"stream_options,omitempty"`
	Tools           []chatTool      `json:"tools,omitempty"`
	ResponseFormat  *responseFormat `json:"response_format,omitempty"`
	ReasoningEffort string          `json:"reasoning_effort,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatMessage carries one conversation entry. Content is a plain string
// for text-only messages and a part array when attachments are present.
type chatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type toolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function toolCallFunction `json:"function"`
}

type toolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type jsonSchemaFormat struct {
	Name   string `json:"name"`
	Strict bool   `json:"strict"`
	Schema any    `json:"schema"`
}

// chatResponse mirrors the chat/completions response body.
type chatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage"`
}

type choice struct {
	Index        int             `json:"index"`
	Message      responseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type responseMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type usage struct {
	PromptTokens            int                      `json:"prompt_tokens"`
	CompletionTokens        int                      `json:"completion_tokens"`
	TotalTokens             int                      `json:"total_tokens"`
	PromptTokensDetails     *promptTokensDetails     `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails *completionTokensDetails `json:"completion_tokens_details,omitempty"`
}

type promptTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

type completionTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

// buildRequest translates the canonical request into the wire shape.
func (c *Client) buildRequest(req llm.ChatRequest, streaming bool) (*chatRequest, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, msg := range req.Messages {
		converted, err := convertMessage(msg)
		if err != nil {
			return nil, err
		}
		messages = append(messages, converted)
	}

	wireReq := &chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
	}

	if streaming {
		wireReq.Stream = true
		wireReq.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	for _, tool := range req.Tools {
		wireReq.Tools = append(wireReq.Tools, chatTool{
			Type: "function",
			Function: toolFunction{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}

	if req.ResponseFormat != nil {
		rf, err := convertResponseFormat(req.ResponseFormat)
		if err != nil {
			return nil, err
		}
		wireReq.ResponseFormat = rf
	}

	// There is no universal wire field for an integer thinking budget;
	// each provider maps it onto its coarse effort scale.
	if req.ThinkingBudget != nil && c.effort != nil {
		wireReq.ReasoningEffort = c.effort(*req.ThinkingBudget)
	}

	return wireReq, nil
}

func convertMessage(msg llm.Message) (chatMessage, error) {
	out := chatMessage{Role: string(msg.Role)}

	switch {
	case msg.IsToolResult():
		out.Content = msg.Text
		out.ToolCallID = msg.ToolCallID
	case msg.HasToolCalls():
		if msg.Text != "" {
			out.Content = msg.Text
		}
		for _, call := range msg.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, toolCall{
				ID:   call.ID,
				Type: "function",
				Function: toolCallFunction{
					Name:      call.Function.Name,
					Arguments: call.Function.Arguments,
				},
			})
		}
	case msg.HasAttachments():
		parts := make([]contentPart, 0, len(msg.Attachments)+1)
		if msg.Text != "" {
			parts = append(parts, contentPart{Type: "text", Text: msg.Text})
		}
		for _, att := range msg.Attachments {
			dataURL := fmt.Sprintf("data:%s;base64,%s",
				att.MimeType, base64.StdEncoding.EncodeToString(att.Data))
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: dataURL}})
		}
		out.Content = parts
	default:
		out.Content = msg.Text
	}

	return out, nil
}

func convertResponseFormat(rf *llm.ResponseFormat) (*responseFormat, error) {
	switch rf.Type {
	case llm.ResponseFormatText:
		return nil, nil
	case llm.ResponseFormatJSON:
		return &responseFormat{Type: "json_object"}, nil
	case llm.ResponseFormatJSONSchema:
		if rf.JSONSchema == nil {
			return nil, &llm.Error{
				Code:    "missing_schema",
				Message: "json_schema response format requires a schema",
				Type:    llm.ErrorTypeValidation,
			}
		}
		name := rf.JSONSchema.Name
		if name == "" {
			name = "response"
		}
		return &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   name,
				Strict: true,
				Schema: rf.JSONSchema.Schema,
			},
		}, nil
	default:
		return nil, &llm.Error{
			Code:    "invalid_response_format",
			Message: fmt.Sprintf("unknown response format type %q", rf.Type),
			Type:    llm.ErrorTypeValidation,
		}
	}
}

// convertResponse normalizes the first choice of a wire response.
func (c *Client) convertResponse(wireResp chatResponse) *llm.ChatResponse {
	first := wireResp.Choices[0]

	resp := &llm.ChatResponse{
		ID:         wireResp.ID,
		Model:      wireResp.Model,
		Content:    first.Message.Content,
		StopReason: normalizeFinishReason(first.FinishReason),
	}
	for _, call := range first.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
			ID:   call.ID,
			Type: "function",
			Function: llm.ToolCallFunction{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		})
	}
	if wireResp.Usage != nil {
		resp.Usage = convertUsage(*wireResp.Usage)
	}
	return resp
}

// convertUsage extracts token counts, defaulting every missing nested
// field to zero.
func convertUsage(u usage) llm.Usage {
	out := llm.Usage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
	}
	if u.PromptTokensDetails != nil {
		out.CacheReadTokens = u.PromptTokensDetails.CachedTokens
	}
	if u.CompletionTokensDetails != nil {
		out.ThinkingTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	return out
}

func normalizeFinishReason(reason string) string {
	switch reason {
	case "tool_calls", "function_call":
		return llm.StopReasonToolCalls
	case "length":
		return llm.StopReasonLength
	case "stop", "":
		return llm.StopReasonStop
	default:
		return reason
	}
}
