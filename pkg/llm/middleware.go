// Middleware chain for cross-cutting request/response processing
package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Middleware defines the interface for LLM middleware components
type Middleware interface {
	// Name returns the middleware name for identification
	Name() string

	// ProcessRequest processes the request before sending to the provider
	ProcessRequest(ctx context.Context, req *ChatRequest) (*ChatRequest, error)

	// ProcessResponse processes the response after receiving it
	ProcessResponse(ctx context.Context, req *ChatRequest, resp *ChatResponse, err error) (*ChatResponse, error)
}

// MiddlewareClient wraps a Client so every completion passes through a
// middleware chain. Request middleware runs in registration order,
// response middleware in reverse order.
type MiddlewareClient struct {
	client      Client
	middlewares []Middleware
}

// WithMiddleware decorates a client with the given middleware chain.
func WithMiddleware(client Client, middlewares ...Middleware) *MiddlewareClient {
	return &MiddlewareClient{client: client, middlewares: middlewares}
}

// ChatCompletion runs the request through the chain around the wrapped client.
func (c *MiddlewareClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	current := &req
	for _, m := range c.middlewares {
		next, err := m.ProcessRequest(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("middleware %s: %w", m.Name(), err)
		}
		current = next
	}

	resp, err := c.client.ChatCompletion(ctx, *current)
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		processed, procErr := c.middlewares[i].ProcessResponse(ctx, current, resp, err)
		if procErr != nil {
			continue
		}
		resp = processed
	}
	return resp, err
}

// StreamChatCompletion runs request middleware, then opens the stream on
// the wrapped client. Stream events are not routed through the chain.
func (c *MiddlewareClient) StreamChatCompletion(ctx context.Context, req ChatRequest) (<-chan StreamEvent, error) {
	current := &req
	for _, m := range c.middlewares {
		next, err := m.ProcessRequest(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("middleware %s: %w", m.Name(), err)
		}
		current = next
	}
	return c.client.StreamChatCompletion(ctx, *current)
}

// GetModelInfo delegates to the wrapped client.
func (c *MiddlewareClient) GetModelInfo() ModelInfo {
	return c.client.GetModelInfo()
}

// Close delegates to the wrapped client.
func (c *MiddlewareClient) Close() error {
	return c.client.Close()
}

var _ Client = (*MiddlewareClient)(nil)

// LoggingMiddleware records one structured log line per completion with
// model, latency, stop reason and token usage.
type LoggingMiddleware struct {
	Logger zerolog.Logger
}

// NewLoggingMiddleware creates a logging middleware writing to logger.
func NewLoggingMiddleware(logger zerolog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{Logger: logger}
}

// Name implements Middleware.
func (l *LoggingMiddleware) Name() string { return "logging" }

// ProcessRequest implements Middleware.
func (l *LoggingMiddleware) ProcessRequest(ctx context.Context, req *ChatRequest) (*ChatRequest, error) {
	l.Logger.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Int("tools", len(req.Tools)).
		Msg("chat completion request")
	return req, nil
}

// ProcessResponse implements Middleware.
func (l *LoggingMiddleware) ProcessResponse(ctx context.Context, req *ChatRequest, resp *ChatResponse, err error) (*ChatResponse, error) {
	if err != nil {
		l.Logger.Warn().Err(err).Str("model", req.Model).Msg("chat completion failed")
		return resp, nil
	}
	l.Logger.Info().
		Str("model", resp.Model).
		Str("stop_reason", resp.StopReason).
		Int("input_tokens", resp.Usage.InputTokens).
		Int("output_tokens", resp.Usage.OutputTokens).
		Int("total_tokens", resp.Usage.Total()).
		Msg("chat completion")
	return resp, nil
}
