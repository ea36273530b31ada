package google

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/polyllm/go-polyllm/pkg/llm"
)

func newStudioClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(llm.ClientConfig{APIKey: "studio-key", Model: "gemini-2.0-flash"})
	require.NoError(t, err)
	return client
}

func intPtr(n int) *int { return &n }

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(llm.ClientConfig{})
	require.Error(t, err)

	t.Run("vertex_requires_project", func(t *testing.T) {
		supplier := llm.TokenSupplierFunc(func(ctx context.Context) (string, error) {
			return "token", nil
		})
		_, err := NewClient(llm.ClientConfig{TokenSupplier: supplier})
		require.Error(t, err)

		var llmErr *llm.Error
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, "missing_project", llmErr.Code)
	})
}

func TestEndpointModes(t *testing.T) {
	t.Run("ai_studio", func(t *testing.T) {
		client := newStudioClient(t)
		url := client.endpoint(false)
		assert.Equal(t,
			"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent?key=studio-key",
			url)

		streamURL := client.endpoint(true)
		assert.Contains(t, streamURL, ":streamGenerateContent?alt=sse&key=studio-key")
	})

	t.Run("vertex", func(t *testing.T) {
		supplier := llm.TokenSupplierFunc(func(ctx context.Context) (string, error) {
			return "token", nil
		})
		client, err := NewClient(llm.ClientConfig{
			Model:         "gemini-2.0-flash",
			Project:       "my-project",
			Location:      "europe-west1",
			TokenSupplier: supplier,
		})
		require.NoError(t, err)

		url := client.endpoint(false)
		assert.True(t, strings.HasPrefix(url, "https://europe-west1-aiplatform.googleapis.com/v1/projects/my-project/locations/europe-west1/"), url)
		assert.Contains(t, url, "publishers/google/models/gemini-2.0-flash:generateContent")
		assert.NotContains(t, url, "key=")
	})
}

func TestSerializeRolesAndSystemInstruction(t *testing.T) {
	client := newStudioClient(t)

	body, err := client.Serialize(llm.ChatRequest{
		Model:        "gemini-2.0-flash",
		SystemPrompt: "Be terse.",
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleUser, "hello"),
			llm.NewTextMessage(llm.RoleAssistant, "hi there"),
			llm.NewTextMessage(llm.RoleUser, "bye"),
		},
	})
	require.NoError(t, err)

	js := string(body)
	assert.Equal(t, "Be terse.", gjson.Get(js, "system_instruction.parts.0.text").String())
	// The wire roles are user|model, never assistant.
	assert.Equal(t, "user", gjson.Get(js, "contents.0.role").String())
	assert.Equal(t, "model", gjson.Get(js, "contents.1.role").String())
	assert.Equal(t, "user", gjson.Get(js, "contents.2.role").String())
}

func TestSerializeGenerationConfig(t *testing.T) {
	client := newStudioClient(t)
	temp := float32(0.2)

	body, err := client.Serialize(llm.ChatRequest{
		Model:          "gemini-2.0-flash",
		Messages:       []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
		Temperature:    &temp,
		MaxTokens:      intPtr(1024),
		Stop:           []string{"END"},
		ThinkingBudget: intPtr(8000),
		ResponseFormat: llm.NewJSONSchemaResponseFormat("weather", "", map[string]any{"type": "object"}),
	})
	require.NoError(t, err)

	js := string(body)
	assert.InDelta(t, 0.2, gjson.Get(js, "generationConfig.temperature").Float(), 0.001)
	assert.Equal(t, int64(1024), gjson.Get(js, "generationConfig.maxOutputTokens").Int())
	assert.Equal(t, "END", gjson.Get(js, "generationConfig.stopSequences.0").String())
	assert.Equal(t, int64(8000), gjson.Get(js, "generationConfig.thinkingConfig.thinkingBudget").Int())
	assert.Equal(t, "application/json", gjson.Get(js, "generationConfig.responseMimeType").String())
	assert.Equal(t, "object", gjson.Get(js, "generationConfig.responseSchema.type").String())
}

func TestSerializeFunctionDeclarations(t *testing.T) {
	client := newStudioClient(t)

	body, err := client.Serialize(llm.ChatRequest{
		Model:    "gemini-2.0-flash",
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "weather?")},
		Tools: []llm.Tool{
			llm.NewTool("get_weather", "Look up weather", map[string]any{"type": "object"}),
		},
	})
	require.NoError(t, err)

	js := string(body)
	assert.Equal(t, "get_weather", gjson.Get(js, "tools.0.function_declarations.0.name").String())
	assert.Equal(t, "Look up weather", gjson.Get(js, "tools.0.function_declarations.0.description").String())
}

func TestSerializeFunctionResponseLookback(t *testing.T) {
	client := newStudioClient(t)

	conversation := []llm.Message{
		llm.NewTextMessage(llm.RoleUser, "Weather in Paris?"),
		{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{{
				ID:       "call-abc",
				Type:     "function",
				Function: llm.ToolCallFunction{Name: "get_weather", Arguments: `{"location":"Paris"}`},
			}},
		},
		llm.NewToolResultMessage(llm.ToolCallResult{ToolCallID: "call-abc", Content: `{"temp":18}`}),
	}

	body, err := client.Serialize(llm.ChatRequest{
		Model:    "gemini-2.0-flash",
		Messages: conversation,
	})
	require.NoError(t, err)

	js := string(body)
	assert.Equal(t, "model", gjson.Get(js, "contents.1.role").String())
	assert.Equal(t, "get_weather", gjson.Get(js, "contents.1.parts.0.functionCall.name").String())
	assert.Equal(t, "Paris", gjson.Get(js, "contents.1.parts.0.functionCall.args.location").String())

	// The result re-enters as a user functionResponse part, named via the
	// originating call since the wire carries no IDs.
	assert.Equal(t, "user", gjson.Get(js, "contents.2.role").String())
	assert.Equal(t, "get_weather", gjson.Get(js, "contents.2.parts.0.functionResponse.name").String())
	assert.Equal(t, int64(18), gjson.Get(js, "contents.2.parts.0.functionResponse.response.temp").Int())

	t.Run("unknown_call_id_fails", func(t *testing.T) {
		_, err := client.Serialize(llm.ChatRequest{
			Model: "gemini-2.0-flash",
			Messages: []llm.Message{
				llm.NewTextMessage(llm.RoleUser, "hi"),
				llm.NewToolResultMessage(llm.ToolCallResult{ToolCallID: "call-missing", Content: "x"}),
			},
		})
		require.Error(t, err)
	})

	t.Run("plain_text_result_wrapped", func(t *testing.T) {
		msgs := make([]llm.Message, len(conversation))
		copy(msgs, conversation)
		msgs[2] = llm.NewToolResultMessage(llm.ToolCallResult{ToolCallID: "call-abc", Content: "sunny"})

		body, err := client.Serialize(llm.ChatRequest{Model: "gemini-2.0-flash", Messages: msgs})
		require.NoError(t, err)
		assert.Equal(t, "sunny", gjson.GetBytes(body, "contents.2.parts.0.functionResponse.response.result").String())
	})

	t.Run("error_result_wrapped_under_error", func(t *testing.T) {
		msgs := make([]llm.Message, len(conversation))
		copy(msgs, conversation)
		msgs[2] = llm.NewToolResultMessage(llm.ToolCallResult{ToolCallID: "call-abc", Content: "city not found", IsError: true})

		body, err := client.Serialize(llm.ChatRequest{Model: "gemini-2.0-flash", Messages: msgs})
		require.NoError(t, err)
		assert.Equal(t, "city not found", gjson.GetBytes(body, "contents.2.parts.0.functionResponse.response.error").String())
	})
}

func TestDeserializeResponse(t *testing.T) {
	client := newStudioClient(t)

	resp, err := client.Deserialize([]byte(`{
		"candidates": [{
			"content": {"role": "model", "parts": [
				{"text": "Let me check. "},
				{"functionCall": {"name": "get_weather", "args": {"location": "Paris"}}}
			]},
			"finishReason": "STOP"
		}],
		"usageMetadata": {
			"promptTokenCount": 30,
			"candidatesTokenCount": 9,
			"cachedContentTokenCount": 12,
			"thoughtsTokenCount": 4
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Let me check. ", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	call := resp.ToolCalls[0]
	assert.Equal(t, "get_weather", call.Function.Name)
	assert.JSONEq(t, `{"location":"Paris"}`, call.Function.Arguments)
	// Synthetic IDs are minted since the wire has none.
	assert.True(t, strings.HasPrefix(call.ID, "call-"), call.ID)

	assert.Equal(t, llm.StopReasonToolCalls, resp.StopReason)
	assert.Equal(t, llm.Usage{
		InputTokens:     30,
		OutputTokens:    9,
		CacheReadTokens: 12,
		ThinkingTokens:  4,
	}, resp.Usage)
}

func TestDeserializeNoCandidates(t *testing.T) {
	client := newStudioClient(t)
	_, err := client.Deserialize([]byte(`{"candidates": []}`))
	require.Error(t, err)

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrorTypeParse, llmErr.Type)
}
