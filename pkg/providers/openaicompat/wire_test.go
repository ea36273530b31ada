package openaicompat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/polyllm/go-polyllm/pkg/llm"
)

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	if opts.Provider == "" {
		opts.Provider = "openai"
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = "gpt-4o-mini"
	}
	client, err := NewClient(llm.ClientConfig{APIKey: "test-key"}, opts)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(llm.ClientConfig{}, Options{Provider: "openai"})
	require.Error(t, err)

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "missing_api_key", llmErr.Code)
}

func TestSerializeBasicRequest(t *testing.T) {
	client := newTestClient(t, Options{})
	temp := float32(0.7)

	body, err := client.Serialize(llm.ChatRequest{
		Model:        "gpt-4o",
		SystemPrompt: "Be terse.",
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleUser, "hello"),
		},
		Temperature: &temp,
		Stop:        []string{"END"},
	}, false)
	require.NoError(t, err)

	js := string(body)
	assert.Equal(t, "gpt-4o", gjson.Get(js, "model").String())
	assert.Equal(t, "system", gjson.Get(js, "messages.0.role").String())
	assert.Equal(t, "Be terse.", gjson.Get(js, "messages.0.content").String())
	assert.Equal(t, "user", gjson.Get(js, "messages.1.role").String())
	assert.InDelta(t, 0.7, gjson.Get(js, "temperature").Float(), 0.001)
	assert.Equal(t, "END", gjson.Get(js, "stop.0").String())
	assert.False(t, gjson.Get(js, "stream").Exists())
}

func TestSerializeStreamingRequestsUsage(t *testing.T) {
	client := newTestClient(t, Options{})

	body, err := client.Serialize(llm.ChatRequest{
		Model:    "gpt-4o",
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
	}, true)
	require.NoError(t, err)

	js := string(body)
	assert.True(t, gjson.Get(js, "stream").Bool())
	assert.True(t, gjson.Get(js, "stream_options.include_usage").Bool())
}

func TestSerializeToolDefinitionsAndResults(t *testing.T) {
	client := newTestClient(t, Options{})

	body, err := client.Serialize(llm.ChatRequest{
		Model: "gpt-4o",
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleUser, "Weather in Paris?"),
			{
				Role: llm.RoleAssistant,
				ToolCalls: []llm.ToolCall{{
					ID:       "call-1",
					Type:     "function",
					Function: llm.ToolCallFunction{Name: "get_weather", Arguments: `{"location":"Paris"}`},
				}},
			},
			llm.NewToolResultMessage(llm.ToolCallResult{ToolCallID: "call-1", Content: "sunny"}),
		},
		Tools: []llm.Tool{
			llm.NewTool("get_weather", "Look up weather", map[string]any{"type": "object"}),
		},
	}, false)
	require.NoError(t, err)

	js := string(body)
	assert.Equal(t, "function", gjson.Get(js, "tools.0.type").String())
	assert.Equal(t, "get_weather", gjson.Get(js, "tools.0.function.name").String())

	assert.Equal(t, "call-1", gjson.Get(js, "messages.1.tool_calls.0.id").String())
	assert.Equal(t, "tool", gjson.Get(js, "messages.2.role").String())
	assert.Equal(t, "call-1", gjson.Get(js, "messages.2.tool_call_id").String())
	assert.Equal(t, "sunny", gjson.Get(js, "messages.2.content").String())
}

func TestSerializeAttachmentsAsDataURLs(t *testing.T) {
	client := newTestClient(t, Options{})

	body, err := client.Serialize(llm.ChatRequest{
		Model: "gpt-4o",
		Messages: []llm.Message{{
			Role:        llm.RoleUser,
			Text:        "what is this?",
			Attachments: []llm.Attachment{{MimeType: "image/png", Data: []byte{1, 2, 3}}},
		}},
	}, false)
	require.NoError(t, err)

	js := string(body)
	assert.Equal(t, "text", gjson.Get(js, "messages.0.content.0.type").String())
	assert.Equal(t, "image_url", gjson.Get(js, "messages.0.content.1.type").String())
	url := gjson.Get(js, "messages.0.content.1.image_url.url").String()
	assert.Contains(t, url, "data:image/png;base64,")
}

func TestSerializeResponseFormats(t *testing.T) {
	client := newTestClient(t, Options{})
	base := llm.ChatRequest{
		Model:    "gpt-4o",
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
	}

	t.Run("json_object", func(t *testing.T) {
		req := base
		req.ResponseFormat = llm.NewJSONResponseFormat()
		body, err := client.Serialize(req, false)
		require.NoError(t, err)
		assert.Equal(t, "json_object", gjson.GetBytes(body, "response_format.type").String())
	})

	t.Run("json_schema_is_strict", func(t *testing.T) {
		req := base
		req.ResponseFormat = llm.NewJSONSchemaResponseFormat("weather", "", map[string]any{"type": "object"})
		body, err := client.Serialize(req, false)
		require.NoError(t, err)
		assert.Equal(t, "json_schema", gjson.GetBytes(body, "response_format.type").String())
		assert.Equal(t, "weather", gjson.GetBytes(body, "response_format.json_schema.name").String())
		assert.True(t, gjson.GetBytes(body, "response_format.json_schema.strict").Bool())
	})

	t.Run("json_schema_without_schema_fails", func(t *testing.T) {
		req := base
		req.ResponseFormat = &llm.ResponseFormat{Type: llm.ResponseFormatJSONSchema}
		_, err := client.Serialize(req, false)
		require.Error(t, err)
	})
}

func TestReasoningEffortThresholds(t *testing.T) {
	effort := func(budget int) string {
		switch {
		case budget < 5000:
			return "low"
		case budget <= 20000:
			return "medium"
		default:
			return "high"
		}
	}
	client := newTestClient(t, Options{ReasoningEffort: effort})

	serialize := func(budget int) string {
		req := llm.ChatRequest{
			Model:          "o3",
			Messages:       []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
			ThinkingBudget: &budget,
		}
		body, err := client.Serialize(req, false)
		require.NoError(t, err)
		return gjson.GetBytes(body, "reasoning_effort").String()
	}

	assert.Equal(t, "low", serialize(4999))
	assert.Equal(t, "medium", serialize(5000))
	assert.Equal(t, "medium", serialize(20000))
	assert.Equal(t, "high", serialize(20001))

	t.Run("omitted_without_budget", func(t *testing.T) {
		body, err := client.Serialize(llm.ChatRequest{
			Model:    "o3",
			Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
		}, false)
		require.NoError(t, err)
		assert.False(t, gjson.GetBytes(body, "reasoning_effort").Exists())
	})
}

func TestDeserializeResponse(t *testing.T) {
	client := newTestClient(t, Options{})

	resp, err := client.Deserialize([]byte(`{
		"id": "chatcmpl-1",
		"model": "gpt-4o",
		"choices": [{
			"index": 0,
			"message": {"role": "assistant", "content": "Hello there"},
			"finish_reason": "stop"
		}],
		"usage": {
			"prompt_tokens": 12,
			"completion_tokens": 4,
			"total_tokens": 16,
			"prompt_tokens_details": {"cached_tokens": 8},
			"completion_tokens_details": {"reasoning_tokens": 2}
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "Hello there", resp.Content)
	assert.Equal(t, llm.StopReasonStop, resp.StopReason)
	assert.Equal(t, llm.Usage{
		InputTokens:     12,
		OutputTokens:    4,
		CacheReadTokens: 8,
		ThinkingTokens:  2,
	}, resp.Usage)
}

func TestDeserializeToolCalls(t *testing.T) {
	client := newTestClient(t, Options{})

	resp, err := client.Deserialize([]byte(`{
		"id": "chatcmpl-2",
		"choices": [{
			"message": {
				"role": "assistant",
				"tool_calls": [{
					"id": "call-1",
					"type": "function",
					"function": {"name": "get_weather", "arguments": "{\"location\":\"Paris\"}"}
				}]
			},
			"finish_reason": "tool_calls"
		}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, llm.StopReasonToolCalls, resp.StopReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "get_weather", resp.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"location":"Paris"}`, resp.ToolCalls[0].Function.Arguments)
}

func TestDeserializeMissingUsageDefaultsToZero(t *testing.T) {
	client := newTestClient(t, Options{})

	resp, err := client.Deserialize([]byte(`{
		"id": "chatcmpl-3",
		"choices": [{"message": {"role": "assistant", "content": "hi"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6}
	}`))
	require.NoError(t, err)
	assert.Equal(t, llm.Usage{InputTokens: 5, OutputTokens: 1}, resp.Usage)
}

func TestDeserializeFailures(t *testing.T) {
	client := newTestClient(t, Options{})

	t.Run("malformed_json", func(t *testing.T) {
		_, err := client.Deserialize([]byte(`{not json`))
		var llmErr *llm.Error
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, llm.ErrorTypeParse, llmErr.Type)
	})

	t.Run("no_choices", func(t *testing.T) {
		_, err := client.Deserialize([]byte(`{"id":"x","choices":[]}`))
		var llmErr *llm.Error
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, llm.ErrorTypeParse, llmErr.Type)
	})
}
