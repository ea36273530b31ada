// Streaming support: SSE consumption and tool-call delta accumulation
package openaicompat

import (
	"context"
	"io"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/polyllm/go-polyllm/pkg/llm"
	"github.com/polyllm/go-polyllm/pkg/sse"
)

// doneSentinel terminates OpenAI-style streams.
const doneSentinel = "[DONE]"

// streamChunk mirrors one SSE payload of a streaming completion.
type streamChunk struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
	Usage   *usage         `json:"usage"`
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type streamDelta struct {
	Content   string          `json:"content"`
	ToolCalls []toolCallDelta `json:"tool_calls"`
}

type toolCallDelta struct {
	Index    int              `json:"index"`
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function toolCallFunction `json:"function"`
}

// StreamChatCompletion performs a streaming chat completion request.
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := c.Serialize(req, true)
	if err != nil {
		return nil, err
	}

	respBody, _, err := c.post(ctx, body, true)
	if err != nil {
		return nil, err
	}

	ch := make(chan llm.StreamEvent, 10)
	go func() {
		defer close(ch)
		defer func() { _ = respBody.Close() }()

		decoder := sse.NewDecoder(respBody, sse.WithSentinel(doneSentinel))
		acc := newStreamAccumulator()

		for {
			if ctx.Err() != nil {
				return
			}
			payload, err := decoder.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				sendEvent(ctx, ch, llm.NewErrorEvent(llm.NewNetworkError("stream read", err)))
				return
			}

			events, err := acc.DecodeStreamEvent(payload)
			if err != nil {
				sendEvent(ctx, ch, llm.NewErrorEvent(llm.NewParseError(c.provider, err)))
				return
			}
			for _, event := range events {
				if !sendEvent(ctx, ch, event) {
					return
				}
			}
		}

		for _, event := range acc.Finish() {
			if !sendEvent(ctx, ch, event) {
				return
			}
		}
	}()

	return ch, nil
}

// streamAccumulator reconstructs complete tool calls from index-addressed
// partial deltas. State is owned by a single streaming call.
type streamAccumulator struct {
	slots      map[int]*toolCallSlot
	usage      *llm.Usage
	stopReason string
}

type toolCallSlot struct {
	id   string
	name string
	args strings.Builder
}

func newStreamAccumulator() *streamAccumulator {
	return &streamAccumulator{
		slots:      make(map[int]*toolCallSlot),
		stopReason: llm.StopReasonStop,
	}
}

// DecodeStreamEvent turns one SSE payload into zero or more normalized
// events. Tool-call fragments accumulate until finish_reason reports
// "tool_calls", at which point every slot flushes in index order and the
// accumulator resets.
func (a *streamAccumulator) DecodeStreamEvent(payload string) ([]llm.StreamEvent, error) {
	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return nil, err
	}

	var events []llm.StreamEvent

	for _, ch := range chunk.Choices {
		if ch.Delta.Content != "" {
			events = append(events, llm.NewTextDeltaEvent(ch.Delta.Content))
		}

		for _, delta := range ch.Delta.ToolCalls {
			slot, ok := a.slots[delta.Index]
			if !ok {
				slot = &toolCallSlot{}
				a.slots[delta.Index] = slot
			}
			// The first delta for an index carries the call id and name;
			// later deltas append argument fragments.
			if delta.ID != "" {
				slot.id = delta.ID
			}
			if delta.Function.Name != "" {
				slot.name = delta.Function.Name
			}
			slot.args.WriteString(delta.Function.Arguments)

			events = append(events, llm.NewToolCallDeltaEvent(llm.ToolCallDelta{
				Index:     delta.Index,
				ID:        delta.ID,
				Name:      delta.Function.Name,
				Arguments: delta.Function.Arguments,
			}))
		}

		if ch.FinishReason != "" {
			a.stopReason = normalizeFinishReason(ch.FinishReason)
			if ch.FinishReason == "tool_calls" {
				events = append(events, a.flush()...)
			}
		}
	}

	if chunk.Usage != nil {
		converted := convertUsage(*chunk.Usage)
		a.usage = &converted
	}

	return events, nil
}

// Finish emits the trailing events after the transport stream ends:
// any unflushed tool calls, the usage snapshot exactly once, then done.
func (a *streamAccumulator) Finish() []llm.StreamEvent {
	events := a.flush()
	if a.usage != nil {
		events = append(events, llm.NewUsageEvent(*a.usage))
		a.usage = nil
	}
	return append(events, llm.NewDoneEvent(a.stopReason))
}

func (a *streamAccumulator) flush() []llm.StreamEvent {
	if len(a.slots) == 0 {
		return nil
	}

	indexes := make([]int, 0, len(a.slots))
	for index := range a.slots {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)

	events := make([]llm.StreamEvent, 0, len(indexes))
	for _, index := range indexes {
		slot := a.slots[index]
		events = append(events, llm.NewToolCallEvent(llm.ToolCall{
			ID:   slot.id,
			Type: "function",
			Function: llm.ToolCallFunction{
				Name:      slot.name,
				Arguments: slot.args.String(),
			},
		}))
	}

	a.slots = make(map[int]*toolCallSlot)
	return events
}

func sendEvent(ctx context.Context, ch chan<- llm.StreamEvent, event llm.StreamEvent) bool {
	select {
	case ch <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
