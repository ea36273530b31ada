// Streaming support: content-block event state machine
package anthropic

import (
	"context"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/polyllm/go-polyllm/pkg/llm"
	"github.com/polyllm/go-polyllm/pkg/sse"
)

// StreamChatCompletion performs a streaming chat completion request.
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := c.Serialize(req, true)
	if err != nil {
		return nil, err
	}

	respBody, err := c.post(ctx, body, true)
	if err != nil {
		return nil, err
	}

	ch := make(chan llm.StreamEvent, 10)
	go func() {
		defer close(ch)
		defer func() { _ = respBody.Close() }()

		decoder := sse.NewDecoder(respBody)
		acc := newStreamAccumulator(usesSchemaEmulation(req))

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
				sendEvent(ctx, ch, llm.NewErrorEvent(llm.NewParseError("anthropic", err)))
				return
			}
			for _, event := range events {
				if !sendEvent(ctx, ch, event) {
					return
				}
			}
			if acc.done {
				return
			}
		}
	}()

	return ch, nil
}

// streamAccumulator reconstructs tool calls and usage from the Messages
// API event grammar. Text and tool arguments arrive inside explicit
// content_block_start/delta/stop framing; usage arrives split across
// message_start (input/cache) and message_delta (output) and is yielded
// exactly once, at message_stop.
type streamAccumulator struct {
	blocks          map[int]*blockState
	usage           llm.Usage
	stopReason      string
	schemaEmulation bool
	done            bool
}

type blockState struct {
	typ  string
	id   string
	name string
	args strings.Builder
}

func newStreamAccumulator(schemaEmulation bool) *streamAccumulator {
	return &streamAccumulator{
		blocks:          make(map[int]*blockState),
		stopReason:      llm.StopReasonStop,
		schemaEmulation: schemaEmulation,
	}
}

// DecodeStreamEvent turns one SSE payload into zero or more normalized
// events, dispatching on the payload's type field.
func (a *streamAccumulator) DecodeStreamEvent(payload string) ([]llm.StreamEvent, error) {
	switch gjson.Get(payload, "type").String() {
	case "message_start":
		var event struct {
			Message struct {
				Usage wireUsage `json:"usage"`
			} `json:"message"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, err
		}
		a.usage = a.usage.Add(convertUsage(event.Message.Usage))
		return nil, nil

	case "content_block_start":
		var event struct {
			Index        int          `json:"index"`
			ContentBlock contentBlock `json:"content_block"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, err
		}
		block := &blockState{
			typ:  event.ContentBlock.Type,
			id:   event.ContentBlock.ID,
			name: event.ContentBlock.Name,
		}
		a.blocks[event.Index] = block
		if block.typ == "tool_use" && !a.isSchemaTool(block) {
			return []llm.StreamEvent{llm.NewToolCallDeltaEvent(llm.ToolCallDelta{
				Index: event.Index,
				ID:    block.id,
				Name:  block.name,
			})}, nil
		}
		return nil, nil

	case "content_block_delta":
		var event struct {
			Index int `json:"index"`
			Delta struct {
				Type        string `json:"type"`
				Text        string `json:"text"`
				PartialJSON string `json:"partial_json"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, err
		}
		switch event.Delta.Type {
		case "text_delta":
			return []llm.StreamEvent{llm.NewTextDeltaEvent(event.Delta.Text)}, nil
		case "input_json_delta":
			block, ok := a.blocks[event.Index]
			if !ok {
				return nil, fmt.Errorf("input_json_delta for unknown block %d", event.Index)
			}
			block.args.WriteString(event.Delta.PartialJSON)
			if a.isSchemaTool(block) {
				return nil, nil
			}
			return []llm.StreamEvent{llm.NewToolCallDeltaEvent(llm.ToolCallDelta{
				Index:     event.Index,
				Arguments: event.Delta.PartialJSON,
			})}, nil
		}
		return nil, nil

	case "content_block_stop":
		var event struct {
			Index int `json:"index"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, err
		}
		block, ok := a.blocks[event.Index]
		if !ok || block.typ != "tool_use" {
			return nil, nil
		}
		delete(a.blocks, event.Index)
		args := block.args.String()
		if args == "" {
			args = "{}"
		}
		// A forced json_response tool is the structured-output emulation;
		// surface its input as text instead of a tool call.
		if a.isSchemaTool(block) {
			return []llm.StreamEvent{llm.NewTextDeltaEvent(args)}, nil
		}
		return []llm.StreamEvent{llm.NewToolCallEvent(llm.ToolCall{
			ID:   block.id,
			Type: "function",
			Function: llm.ToolCallFunction{
				Name:      block.name,
				Arguments: args,
			},
		})}, nil

	case "message_delta":
		var event struct {
			Delta struct {
				StopReason string `json:"stop_reason"`
			} `json:"delta"`
			Usage struct {
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, err
		}
		if event.Delta.StopReason != "" {
			a.stopReason = normalizeStopReason(event.Delta.StopReason)
			if a.schemaEmulation && a.stopReason == llm.StopReasonToolCalls {
				a.stopReason = llm.StopReasonStop
			}
		}
		// Output tokens replace rather than add: message_delta reports
		// the running total, not an increment.
		a.usage.OutputTokens = event.Usage.OutputTokens
		return nil, nil

	case "message_stop":
		a.done = true
		return []llm.StreamEvent{
			llm.NewUsageEvent(a.usage),
			llm.NewDoneEvent(a.stopReason),
		}, nil

	case "error":
		message := gjson.Get(payload, "error.message").String()
		return []llm.StreamEvent{llm.NewErrorEvent(&llm.Error{
			Code:    "anthropic_stream_error",
			Message: message,
			Type:    llm.ErrorTypeAPI,
		})}, nil

	case "ping":
		return nil, nil
	}

	// Unknown event types are forward-compatible noise.
	return nil, nil
}

func (a *streamAccumulator) isSchemaTool(block *blockState) bool {
	return a.schemaEmulation && block.name == jsonResponseToolName
}

func sendEvent(ctx context.Context, ch chan<- llm.StreamEvent, event llm.StreamEvent) bool {
	select {
	case ch <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
