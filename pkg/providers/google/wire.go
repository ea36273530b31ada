// Gemini generateContent wire format structures and conversion
package google

import (
	"encoding/base64"
	"errors"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/polyllm/go-polyllm/pkg/llm"
)

var errNoCandidates = errors.New("response contains no candidates")

// generateRequest mirrors the generateContent request body.
type generateRequest struct {
	SystemInstruction *content          `json:"system_instruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	Tools             []wireTool        `json:"tools,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// part is the union of Gemini part shapes; exactly one field is set.
type part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *inlineData       `json:"inline_data,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type functionResponse struct {
	Name     string `json:"name"`
	Response any    `json:"response"`
}

type generationConfig struct {
	Temperature      *float32        `json:"temperature,omitempty"`
	TopP             *float32        `json:"topP,omitempty"`
	MaxOutputTokens  *int            `json:"maxOutputTokens,omitempty"`
	StopSequences    []string        `json:"stopSequences,omitempty"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   any             `json:"responseSchema,omitempty"`
	ThinkingConfig   *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type wireTool struct {
	FunctionDeclarations []functionDeclaration `json:"function_declarations"`
}

type functionDeclaration struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// generateResponse mirrors the generateContent response body.
type generateResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount        int `json:"promptTokenCount"`
	CandidatesTokenCount    int `json:"candidatesTokenCount"`
	CachedContentTokenCount int `json:"cachedContentTokenCount"`
	ThoughtsTokenCount      int `json:"thoughtsTokenCount"`
}

// Serialize converts a canonical request into the generateContent body.
// Streaming uses the same body; only the URL method differs.
func (c *Client) Serialize(req llm.ChatRequest) ([]byte, error) {
	wireReq := &generateRequest{}

	// System text is a dedicated top-level instruction, not a content turn.
	systemText := req.SystemPrompt
	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			if systemText != "" {
				systemText += "\n\n"
			}
			systemText += msg.Text
		}
	}
	if systemText != "" {
		wireReq.SystemInstruction = &content{Parts: []part{{Text: systemText}}}
	}

	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			continue
		}
		turn, err := convertMessage(msg, req.Messages)
		if err != nil {
			return nil, err
		}
		wireReq.Contents = append(wireReq.Contents, turn)
	}

	cfg := &generationConfig{
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		MaxOutputTokens: req.MaxTokens,
		StopSequences:   req.Stop,
	}
	if req.ThinkingBudget != nil {
		cfg.ThinkingConfig = &thinkingConfig{ThinkingBudget: *req.ThinkingBudget}
	}
	if req.ResponseFormat != nil {
		switch req.ResponseFormat.Type {
		case llm.ResponseFormatJSON:
			cfg.ResponseMimeType = "application/json"
		case llm.ResponseFormatJSONSchema:
			cfg.ResponseMimeType = "application/json"
			if req.ResponseFormat.JSONSchema != nil {
				cfg.ResponseSchema = req.ResponseFormat.JSONSchema.Schema
			}
		}
	}
	wireReq.GenerationConfig = cfg

	if len(req.Tools) > 0 {
		declarations := make([]functionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			declarations = append(declarations, functionDeclaration{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			})
		}
		wireReq.Tools = []wireTool{{FunctionDeclarations: declarations}}
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

func convertMessage(msg llm.Message, conversation []llm.Message) (content, error) {
	switch {
	case msg.IsToolResult():
		// Tool results re-enter as user turns holding a functionResponse
		// part. The wire format identifies the call by function name, not
		// ID, so the name is recovered from the originating assistant turn.
		name, err := lookupFunctionName(conversation, msg.ToolCallID)
		if err != nil {
			return content{}, err
		}
		return content{
			Role: "user",
			Parts: []part{{FunctionResponse: &functionResponse{
				Name:     name,
				Response: wrapFunctionResult(msg),
			}}},
		}, nil

	case msg.HasToolCalls():
		parts := make([]part, 0, len(msg.ToolCalls)+1)
		if msg.Text != "" {
			parts = append(parts, part{Text: msg.Text})
		}
		for _, call := range msg.ToolCalls {
			args := call.Function.Arguments
			if args == "" {
				args = "{}"
			}
			parts = append(parts, part{FunctionCall: &functionCall{
				Name: call.Function.Name,
				Args: json.RawMessage(args),
			}})
		}
		return content{Role: "model", Parts: parts}, nil

	default:
		parts := make([]part, 0, len(msg.Attachments)+1)
		if msg.Text != "" {
			parts = append(parts, part{Text: msg.Text})
		}
		for _, att := range msg.Attachments {
			parts = append(parts, part{InlineData: &inlineData{
				MimeType: att.MimeType,
				Data:     base64.StdEncoding.EncodeToString(att.Data),
			}})
		}
		role := "user"
		if msg.Role == llm.RoleAssistant {
			role = "model"
		}
		return content{Role: role, Parts: parts}, nil
	}
}

// lookupFunctionName scans earlier assistant turns for the tool call the
// result answers.
func lookupFunctionName(conversation []llm.Message, toolCallID string) (string, error) {
	for _, msg := range conversation {
		for _, call := range msg.ToolCalls {
			if call.ID == toolCallID {
				return call.Function.Name, nil
			}
		}
	}
	return "", &llm.Error{
		Code:    "unknown_tool_call",
		Message: "tool result references unknown call " + toolCallID,
		Type:    llm.ErrorTypeValidation,
	}
}

// wrapFunctionResult shapes a tool result as the JSON object the wire
// format requires. Object-shaped results pass through; anything else is
// wrapped under a result (or error) key.
func wrapFunctionResult(msg llm.Message) any {
	if msg.ToolResultError {
		return map[string]any{"error": msg.Text}
	}
	if gjson.Valid(msg.Text) && gjson.Parse(msg.Text).IsObject() {
		return json.RawMessage(msg.Text)
	}
	return map[string]any{"result": msg.Text}
}

func convertResponse(model string, wireResp generateResponse) (*llm.ChatResponse, error) {
	if len(wireResp.Candidates) == 0 {
		return nil, llm.NewParseError("google", errNoCandidates)
	}
	cand := wireResp.Candidates[0]

	resp := &llm.ChatResponse{
		Model:      model,
		StopReason: normalizeFinishReason(cand.FinishReason),
	}
	for _, p := range cand.Content.Parts {
		if p.Text != "" {
			resp.Content += p.Text
		}
		if p.FunctionCall != nil {
			resp.ToolCalls = append(resp.ToolCalls, convertFunctionCall(*p.FunctionCall))
		}
	}
	if len(resp.ToolCalls) > 0 {
		resp.StopReason = llm.StopReasonToolCalls
	}
	if wireResp.UsageMetadata != nil {
		resp.Usage = convertUsage(*wireResp.UsageMetadata)
	}
	return resp, nil
}

// convertFunctionCall mints a synthetic call ID; the wire format has
// none, but the canonical model and the other providers require one.
func convertFunctionCall(call functionCall) llm.ToolCall {
	args := string(call.Args)
	if args == "" {
		args = "{}"
	}
	return llm.ToolCall{
		ID:   "call-" + uuid.NewString(),
		Type: "function",
		Function: llm.ToolCallFunction{
			Name:      call.Name,
			Arguments: args,
		},
	}
}

func convertUsage(u usageMetadata) llm.Usage {
	return llm.Usage{
		InputTokens:     u.PromptTokenCount,
		OutputTokens:    u.CandidatesTokenCount,
		CacheReadTokens: u.CachedContentTokenCount,
		ThinkingTokens:  u.ThoughtsTokenCount,
	}
}

func normalizeFinishReason(reason string) string {
	switch reason {
	case "STOP", "":
		return llm.StopReasonStop
	case "MAX_TOKENS":
		return llm.StopReasonLength
	default:
		return llm.StopReasonStop
	}
}
