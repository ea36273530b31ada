// Normalized streaming event types
package llm

// StreamEventType discriminates the StreamEvent union.
type StreamEventType string

const (
	// EventTextDelta carries an incremental fragment of response text.
	EventTextDelta StreamEventType = "text_delta"
	// EventToolCallDelta carries a partial tool call still being streamed.
	EventToolCallDelta StreamEventType = "tool_call_delta"
	// EventToolCall carries a fully reconstructed tool call invocation.
	EventToolCall StreamEventType = "tool_call"
	// EventToolResult reports a tool execution result appended by the loop.
	EventToolResult StreamEventType = "tool_result"
	// EventUsage carries a usage snapshot. Later snapshots supersede
	// earlier ones within the same stream.
	EventUsage StreamEventType = "usage"
	// EventDone terminates a stream with its stop reason.
	EventDone StreamEventType = "done"
	// EventError terminates a stream with an error.
	EventError StreamEventType = "error"
)

// StreamEvent represents a single normalized event in a streaming
// response. Events are delivered to the caller in the exact order produced
// by the underlying transport.
type StreamEvent struct {
	Type          StreamEventType `json:"type"`
	Text          string          `json:"text,omitempty"`
	ToolCall      *ToolCall       `json:"tool_call,omitempty"`
	ToolCallDelta *ToolCallDelta  `json:"tool_call_delta,omitempty"`
	ToolResult    *ToolCallResult `json:"tool_result,omitempty"`
	Usage         *Usage          `json:"usage,omitempty"`
	StopReason    string          `json:"stop_reason,omitempty"`
	Error         *Error          `json:"error,omitempty"`
}

// ToolCallDelta represents an incremental tool call update
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// IsTerminal reports whether no further events follow this one.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// NewTextDeltaEvent creates a text delta event.
func NewTextDeltaEvent(text string) StreamEvent {
	return StreamEvent{Type: EventTextDelta, Text: text}
}

// NewToolCallDeltaEvent creates a partial tool call event.
func NewToolCallDeltaEvent(delta ToolCallDelta) StreamEvent {
	return StreamEvent{Type: EventToolCallDelta, ToolCallDelta: &delta}
}

// NewToolCallEvent creates an event for a complete tool call.
func NewToolCallEvent(call ToolCall) StreamEvent {
	return StreamEvent{Type: EventToolCall, ToolCall: &call}
}

// NewToolResultEvent creates an event for an executed tool result.
func NewToolResultEvent(result ToolCallResult) StreamEvent {
	return StreamEvent{Type: EventToolResult, ToolResult: &result}
}

// NewUsageEvent creates a usage snapshot event.
func NewUsageEvent(usage Usage) StreamEvent {
	return StreamEvent{Type: EventUsage, Usage: &usage}
}

// NewDoneEvent creates the terminal success event.
func NewDoneEvent(stopReason string) StreamEvent {
	return StreamEvent{Type: EventDone, StopReason: stopReason}
}

// NewErrorEvent creates the terminal error event.
func NewErrorEvent(err *Error) StreamEvent {
	return StreamEvent{Type: EventError, Error: err}
}
