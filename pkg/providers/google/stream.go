// Streaming support for streamGenerateContent with alt=sse
package google

import (
	"context"
	"io"

	json "github.com/goccy/go-json"

	"github.com/polyllm/go-polyllm/pkg/llm"
	"github.com/polyllm/go-polyllm/pkg/sse"
)

// StreamChatCompletion performs a streaming chat completion request.
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := c.Serialize(req)
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
				sendEvent(ctx, ch, llm.NewErrorEvent(llm.NewParseError("google", err)))
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

// streamAccumulator tracks the little state Gemini streaming needs:
// each chunk is a complete generateResponse fragment, function calls
// arrive whole, and usageMetadata may repeat across chunks with the
// final chunk carrying the authoritative value.
type streamAccumulator struct {
	usage      *llm.Usage
	stopReason string
	sawCalls   bool
}

func newStreamAccumulator() *streamAccumulator {
	return &streamAccumulator{stopReason: llm.StopReasonStop}
}

// DecodeStreamEvent turns one SSE payload into zero or more normalized
// events.
func (a *streamAccumulator) DecodeStreamEvent(payload string) ([]llm.StreamEvent, error) {
	var chunk generateResponse
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return nil, err
	}

	var events []llm.StreamEvent
	if len(chunk.Candidates) > 0 {
		cand := chunk.Candidates[0]
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				events = append(events, llm.NewTextDeltaEvent(p.Text))
			}
			if p.FunctionCall != nil {
				a.sawCalls = true
				events = append(events, llm.NewToolCallEvent(convertFunctionCall(*p.FunctionCall)))
			}
		}
		if cand.FinishReason != "" {
			a.stopReason = normalizeFinishReason(cand.FinishReason)
		}
	}
	if chunk.UsageMetadata != nil {
		usage := convertUsage(*chunk.UsageMetadata)
		a.usage = &usage
		events = append(events, llm.NewUsageEvent(usage))
	}
	return events, nil
}

// Finish emits the terminal event once the connection closes.
func (a *streamAccumulator) Finish() []llm.StreamEvent {
	stopReason := a.stopReason
	if a.sawCalls {
		stopReason = llm.StopReasonToolCalls
	}
	return []llm.StreamEvent{llm.NewDoneEvent(stopReason)}
}

func sendEvent(ctx context.Context, ch chan<- llm.StreamEvent, event llm.StreamEvent) bool {
	select {
	case ch <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
