package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	t.Run("valid_text_message", func(t *testing.T) {
		msg := NewTextMessage(RoleUser, "hello")
		assert.NoError(t, msg.Validate())
	})

	t.Run("unknown_role", func(t *testing.T) {
		msg := Message{Role: "narrator", Text: "hello"}
		assert.Error(t, msg.Validate())
	})

	t.Run("tool_calls_on_user_message", func(t *testing.T) {
		msg := Message{
			Role:      RoleUser,
			ToolCalls: []ToolCall{{ID: "call-1"}},
		}
		assert.Error(t, msg.Validate())
	})

	t.Run("tool_message_requires_call_id", func(t *testing.T) {
		msg := Message{Role: RoleTool, Text: "result"}
		assert.Error(t, msg.Validate())
	})

	t.Run("attachment_without_mime_type", func(t *testing.T) {
		msg := Message{
			Role:        RoleUser,
			Attachments: []Attachment{{Data: []byte{1, 2, 3}}},
		}
		assert.Error(t, msg.Validate())
	})
}

func TestNewToolResultMessage(t *testing.T) {
	msg := NewToolResultMessage(ToolCallResult{
		ToolCallID: "call-42",
		Content:    "sunny, 18C",
		IsError:    false,
	})

	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "call-42", msg.ToolCallID)
	assert.Equal(t, "sunny, 18C", msg.Text)
	assert.False(t, msg.ToolResultError)
	assert.True(t, msg.IsToolResult())
	assert.NoError(t, msg.Validate())

	t.Run("error_result", func(t *testing.T) {
		msg := NewToolResultMessage(ToolCallResult{
			ToolCallID: "call-43",
			Content:    "city not found",
			IsError:    true,
		})
		assert.True(t, msg.ToolResultError)
	})
}

func TestMessageDeepCopy(t *testing.T) {
	original := Message{
		Role:        RoleUser,
		Text:        "look at this",
		Attachments: []Attachment{{MimeType: "image/png", Data: []byte{1, 2, 3}}},
	}

	copied := original.DeepCopy()
	require.Equal(t, original, copied)

	// Mutating the copy must not leak into the original.
	copied.Attachments[0].Data[0] = 99
	assert.Equal(t, byte(1), original.Attachments[0].Data[0])
}

func TestChatRequestValidate(t *testing.T) {
	valid := ChatRequest{
		Model:    "test-model",
		Messages: []Message{NewTextMessage(RoleUser, "hi")},
	}
	assert.NoError(t, valid.Validate())

	t.Run("missing_model", func(t *testing.T) {
		req := valid
		req.Model = ""
		assert.Error(t, req.Validate())
	})

	t.Run("empty_messages", func(t *testing.T) {
		req := valid
		req.Messages = nil
		assert.Error(t, req.Validate())
	})

	t.Run("invalid_message_reported_with_index", func(t *testing.T) {
		req := valid
		req.Messages = append(req.Messages, Message{Role: "narrator"})
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "message 1")
	})
}

func TestChatResponseAssistantMessage(t *testing.T) {
	resp := ChatResponse{
		Content: "let me check",
		ToolCalls: []ToolCall{{
			ID:       "call-1",
			Type:     "function",
			Function: ToolCallFunction{Name: "get_weather", Arguments: `{"location":"Paris"}`},
		}},
	}

	msg := resp.AssistantMessage()
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "let me check", msg.Text)
	require.Len(t, msg.ToolCalls, 1)
	assert.NoError(t, msg.Validate())
}
