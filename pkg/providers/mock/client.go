// Package mock provides a scripted llm.Client for testing. Responses and
// stream scripts are consumed in FIFO order; every request is recorded.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/polyllm/go-polyllm/pkg/llm"
)

// Client implements the llm.Client interface for testing
type Client struct {
	mu sync.Mutex

	modelInfo llm.ModelInfo
	responses []scripted
	streams   [][]llm.StreamEvent
	requests  []llm.ChatRequest
}

type scripted struct {
	resp *llm.ChatResponse
	err  error
}

// NewClient creates a new mock client.
func NewClient(model, provider string) *Client {
	if model == "" {
		model = "mock-model"
	}
	if provider == "" {
		provider = "mock"
	}
	return &Client{
		modelInfo: llm.ModelInfo{
			Name:              model,
			Provider:          provider,
			SupportsTools:     true,
			SupportsThinking:  true,
			SupportsStreaming: true,
		},
	}
}

// QueueResponse appends a response to the script.
func (m *Client) QueueResponse(resp llm.ChatResponse) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, scripted{resp: &resp})
	return m
}

// QueueError appends an error to the script.
func (m *Client) QueueError(err error) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, scripted{err: err})
	return m
}

// QueueStream appends a scripted event sequence for the next streaming call.
func (m *Client) QueueStream(events ...llm.StreamEvent) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, events)
	return m
}

// Requests returns a copy of every request seen so far.
func (m *Client) Requests() []llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the number of completion and streaming calls made.
func (m *Client) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// ChatCompletion returns the next scripted response or error. With an
// empty script it answers with a canned message.
func (m *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, req.DeepCopy())
	if len(m.responses) == 0 {
		m.mu.Unlock()
		return &llm.ChatResponse{
			ID:         fmt.Sprintf("mock-%d", len(m.requests)),
			Model:      m.modelInfo.Name,
			Content:    "mock response",
			StopReason: llm.StopReasonStop,
			Usage:      llm.Usage{InputTokens: 10, OutputTokens: 5},
		}, nil
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	m.mu.Unlock()

	if next.err != nil {
		return nil, next.err
	}
	resp := *next.resp
	if resp.Model == "" {
		resp.Model = m.modelInfo.Name
	}
	return &resp, nil
}

// StreamChatCompletion replays the next scripted event sequence. With an
// empty script it streams the canned message as one delta.
func (m *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, req.DeepCopy())
	var events []llm.StreamEvent
	if len(m.streams) > 0 {
		events = m.streams[0]
		m.streams = m.streams[1:]
	} else {
		events = []llm.StreamEvent{
			llm.NewTextDeltaEvent("mock response"),
			llm.NewUsageEvent(llm.Usage{InputTokens: 10, OutputTokens: 5}),
			llm.NewDoneEvent(llm.StopReasonStop),
		}
	}
	m.mu.Unlock()

	ch := make(chan llm.StreamEvent, len(events))
	go func() {
		defer close(ch)
		for _, event := range events {
			select {
			case ch <- event:
			case <-ctx.Done():
				return
			}
			if event.IsTerminal() {
				return
			}
		}
	}()
	return ch, nil
}

// GetModelInfo returns information about the model
func (m *Client) GetModelInfo() llm.ModelInfo {
	return m.modelInfo
}

// Close cleans up resources
func (m *Client) Close() error {
	return nil
}

var _ llm.Client = (*Client)(nil)
