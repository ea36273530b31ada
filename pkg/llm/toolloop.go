// Multi-turn tool-calling orchestration
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxIterations bounds the tool loop when no explicit limit is set.
const DefaultMaxIterations = 20

// ToolLoopOption customizes a tool loop run.
type ToolLoopOption func(*toolLoopOptions)

type toolLoopOptions struct {
	maxIterations int
	logger        zerolog.Logger
}

// WithMaxIterations overrides the iteration bound (default 20).
func WithMaxIterations(n int) ToolLoopOption {
	return func(o *toolLoopOptions) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithLoopLogger attaches a logger to the loop. Defaults to a Nop logger.
func WithLoopLogger(logger zerolog.Logger) ToolLoopOption {
	return func(o *toolLoopOptions) {
		o.logger = logger
	}
}

// ToolLoopResult is the terminal state of a successful tool loop run.
type ToolLoopResult struct {
	// Content is the final assistant text, produced by the first turn
	// that requested no tool execution.
	Content string

	// Usage is the monoid sum of every turn's reported usage.
	Usage Usage

	// Iterations is the number of completion calls made.
	Iterations int

	// Messages is the full conversation, including assistant tool-call
	// messages and tool results appended by the loop.
	Messages []Message
}

// CompleteWithTools drives a conversation to convergence: it calls the
// client, executes any requested tool calls through the executor
// (sequentially, in the order the provider returned them), feeds results
// back as tool messages, and repeats until the model answers without tool
// calls or the iteration bound is reached.
//
// The conversation buffer is owned by this call and discarded at exit; the
// request's message slice is never mutated.
func CompleteWithTools(ctx context.Context, client ChatCompleter, req ChatRequest, executor ToolExecutor, opts ...ToolLoopOption) (*ToolLoopResult, error) {
	o := applyLoopOptions(opts)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(req.Tools) > 0 && executor == nil {
		return nil, &Error{
			Code:    "missing_executor",
			Message: "tools were provided without a tool executor",
			Type:    ErrorTypeValidation,
		}
	}

	runID := uuid.NewString()
	logger := o.logger.With().Str("run_id", runID).Logger()

	conversation := make([]Message, len(req.Messages))
	copy(conversation, req.Messages)

	var totalUsage Usage
	for iteration := 1; iteration <= o.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		turnReq := req
		turnReq.Messages = conversation
		resp, err := client.ChatCompletion(ctx, turnReq)
		if err != nil {
			return nil, err
		}
		totalUsage = totalUsage.Add(resp.Usage)

		logger.Debug().
			Int("iteration", iteration).
			Int("tool_calls", len(resp.ToolCalls)).
			Int("total_tokens", totalUsage.Total()).
			Msg("tool loop turn complete")

		if !resp.HasToolCalls() {
			return &ToolLoopResult{
				Content:    resp.Content,
				Usage:      totalUsage,
				Iterations: iteration,
				Messages:   conversation,
			}, nil
		}

		conversation = append(conversation, resp.AssistantMessage())
		results, err := executeToolCalls(ctx, executor, resp.ToolCalls, nil)
		if err != nil {
			return nil, err
		}
		for _, result := range results {
			conversation = append(conversation, NewToolResultMessage(result))
		}
	}

	return nil, &Error{
		Code:    "tool_loop_exhausted",
		Message: fmt.Sprintf("tool loop did not converge within %d iterations", o.maxIterations),
		Type:    ErrorTypeExhausted,
	}
}

// StreamWithTools is the streaming variant of CompleteWithTools. It emits
// every provider stream event, a tool-result event per executed call, and
// a final usage event followed by done. Termination and iteration-bound
// logic match the non-streaming loop.
func StreamWithTools(ctx context.Context, client Client, req ChatRequest, executor ToolExecutor, opts ...ToolLoopOption) (<-chan StreamEvent, error) {
	o := applyLoopOptions(opts)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(req.Tools) > 0 && executor == nil {
		return nil, &Error{
			Code:    "missing_executor",
			Message: "tools were provided without a tool executor",
			Type:    ErrorTypeValidation,
		}
	}

	out := make(chan StreamEvent, 10)
	go func() {
		defer close(out)

		conversation := make([]Message, len(req.Messages))
		copy(conversation, req.Messages)

		var totalUsage Usage
		for iteration := 1; iteration <= o.maxIterations; iteration++ {
			turnReq := req
			turnReq.Stream = true
			turnReq.Messages = conversation

			events, err := client.StreamChatCompletion(ctx, turnReq)
			if err != nil {
				emit(ctx, out, NewErrorEvent(toLLMError(err)))
				return
			}

			turn, failed := forwardTurn(ctx, out, events)
			if failed {
				return
			}
			totalUsage = totalUsage.Add(turn.usage)

			if len(turn.toolCalls) == 0 {
				emit(ctx, out, NewUsageEvent(totalUsage))
				emit(ctx, out, NewDoneEvent(turn.stopReason))
				return
			}

			conversation = append(conversation, Message{
				Role:      RoleAssistant,
				Text:      turn.text,
				ToolCalls: turn.toolCalls,
			})
			results, err := executeToolCalls(ctx, executor, turn.toolCalls, func(result ToolCallResult) {
				emit(ctx, out, NewToolResultEvent(result))
			})
			if err != nil {
				emit(ctx, out, NewErrorEvent(toLLMError(err)))
				return
			}
			for _, result := range results {
				conversation = append(conversation, NewToolResultMessage(result))
			}
		}

		emit(ctx, out, NewErrorEvent(&Error{
			Code:    "tool_loop_exhausted",
			Message: fmt.Sprintf("tool loop did not converge within %d iterations", o.maxIterations),
			Type:    ErrorTypeExhausted,
		}))
	}()

	return out, nil
}

// turnState accumulates what one streamed turn produced.
type turnState struct {
	text       string
	toolCalls  []ToolCall
	usage      Usage
	stopReason string
}

// forwardTurn relays one turn's events to the caller while collecting the
// turn outcome. It reports failed=true after relaying a terminal error.
func forwardTurn(ctx context.Context, out chan<- StreamEvent, events <-chan StreamEvent) (turnState, bool) {
	var turn turnState
	for event := range events {
		switch event.Type {
		case EventTextDelta:
			turn.text += event.Text
			emit(ctx, out, event)
		case EventToolCallDelta:
			emit(ctx, out, event)
		case EventToolCall:
			turn.toolCalls = append(turn.toolCalls, *event.ToolCall)
			emit(ctx, out, event)
		case EventUsage:
			// Per-turn usage is aggregated and re-emitted once at loop
			// exit, so it is not forwarded here. Snapshots within a turn
			// supersede each other rather than add.
			turn.usage = *event.Usage
		case EventDone:
			turn.stopReason = event.StopReason
		case EventError:
			emit(ctx, out, event)
			return turn, true
		}
	}
	return turn, false
}

// executeToolCalls runs the executor for each call, in provider order. The
// observe callback, when set, sees each result as it is produced.
func executeToolCalls(ctx context.Context, executor ToolExecutor, calls []ToolCall, observe func(ToolCallResult)) ([]ToolCallResult, error) {
	results := make([]ToolCallResult, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := executor(ctx, call)
		if err != nil {
			return nil, fmt.Errorf("tool %s (%s): %w", call.Function.Name, call.ID, err)
		}
		if result.ToolCallID == "" {
			result.ToolCallID = call.ID
		}
		results = append(results, result)
		if observe != nil {
			observe(result)
		}
	}
	return results, nil
}

func applyLoopOptions(opts []ToolLoopOption) toolLoopOptions {
	o := toolLoopOptions{
		maxIterations: DefaultMaxIterations,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func emit(ctx context.Context, out chan<- StreamEvent, event StreamEvent) {
	select {
	case out <- event:
	case <-ctx.Done():
	}
}

func toLLMError(err error) *Error {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: "canceled", Message: err.Error(), Type: ErrorTypeNetwork}
	}
	return &Error{Code: "tool_loop_error", Message: err.Error(), Type: ErrorTypeAPI}
}
