// Message types and functionality
package llm

import (
	"errors"
	"fmt"
)

// MessageRole defines the role of a message sender
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message represents a single chat message. One flexible record covers all
// logical message kinds; codecs dispatch on which optional fields are set:
// plain text, tool-call-bearing (assistant) or tool-result (tool role).
type Message struct {
	Role        MessageRole  `json:"role"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolCallID  string       `json:"tool_call_id,omitempty"`

	// ToolResultError marks a tool-result message as a failed execution.
	// Providers with an explicit error flag on the wire (Anthropic) carry
	// it through; the others surface the error text alone.
	ToolResultError bool `json:"tool_result_error,omitempty"`
}

// Attachment carries binary content (typically an image) alongside text.
type Attachment struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// NewTextMessage creates a plain text message with the given role.
func NewTextMessage(role MessageRole, text string) Message {
	return Message{Role: role, Text: text}
}

// NewToolResultMessage creates the tool-role message that feeds a tool
// execution result back into the conversation.
func NewToolResultMessage(result ToolCallResult) Message {
	return Message{
		Role:            RoleTool,
		Text:            result.Content,
		ToolCallID:      result.ToolCallID,
		ToolResultError: result.IsError,
	}
}

// HasToolCalls checks if the message contains any tool calls
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// HasAttachments checks if the message carries binary attachments
func (m Message) HasAttachments() bool {
	return len(m.Attachments) > 0
}

// IsToolResult reports whether this message carries a tool execution result.
func (m Message) IsToolResult() bool {
	return m.Role == RoleTool && m.ToolCallID != ""
}

// Validate enforces the role/field coupling invariants: tool calls only on
// assistant messages, tool_call_id only on tool messages.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
	default:
		return fmt.Errorf("unknown role %q", m.Role)
	}
	if len(m.ToolCalls) > 0 && m.Role != RoleAssistant {
		return errors.New("tool calls are only valid on assistant messages")
	}
	if m.ToolCallID != "" && m.Role != RoleTool {
		return errors.New("tool_call_id is only valid on tool messages")
	}
	if m.Role == RoleTool && m.ToolCallID == "" {
		return errors.New("tool messages must reference a tool_call_id")
	}
	for i, att := range m.Attachments {
		if err := att.Validate(); err != nil {
			return fmt.Errorf("attachment %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks that the attachment is usable by a codec.
func (a Attachment) Validate() error {
	if a.MimeType == "" {
		return errors.New("attachment mime type is required")
	}
	if len(a.Data) == 0 {
		return errors.New("attachment data is empty")
	}
	return nil
}

// DeepCopy creates a copy of the message that shares no mutable state with
// the original, so conversation buffers can be handed out safely.
func (m Message) DeepCopy() Message {
	out := Message{
		Role:            m.Role,
		Text:            m.Text,
		ToolCallID:      m.ToolCallID,
		ToolResultError: m.ToolResultError,
	}
	if len(m.Attachments) > 0 {
		out.Attachments = make([]Attachment, len(m.Attachments))
		for i, att := range m.Attachments {
			data := make([]byte, len(att.Data))
			copy(data, att.Data)
			out.Attachments[i] = Attachment{MimeType: att.MimeType, Data: data}
		}
	}
	if len(m.ToolCalls) > 0 {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		copy(out.ToolCalls, m.ToolCalls)
	}
	return out
}
