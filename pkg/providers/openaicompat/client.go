// Package openaicompat implements the OpenAI-style chat completions wire
// protocol. It backs every provider speaking that dialect (OpenAI, xAI and
// compatible gateways); the thin openai and xai packages parameterize it
// with a base URL and a reasoning-effort mapping.
package openaicompat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/polyllm/go-polyllm/pkg/llm"
)

const completionsPath = "/v1/chat/completions"

// ReasoningEffortFunc maps a canonical integer thinking budget onto the
// provider's coarse effort category (low|medium|high). Each provider has
// its own thresholds; they are part of the provider contract.
type ReasoningEffortFunc func(budgetTokens int) string

// Options parameterize the shared codec per provider.
type Options struct {
	// Provider names the concrete provider in errors and model info.
	Provider string

	// DefaultBaseURL is used when the config does not override it.
	DefaultBaseURL string

	// DefaultModel is used when the config does not name one.
	DefaultModel string

	// ReasoningEffort maps thinking budgets; nil disables the field.
	ReasoningEffort ReasoningEffortFunc
}

// Client implements llm.Client over the OpenAI-style wire protocol.
type Client struct {
	provider   string
	model      string
	apiKey     string
	baseURL    string
	effort     ReasoningEffortFunc
	httpClient *http.Client
}

// NewClient creates a client for an OpenAI-compatible endpoint.
func NewClient(config llm.ClientConfig, opts Options) (*Client, error) {
	if config.APIKey == "" {
		return nil, &llm.Error{
			Code:    "missing_api_key",
			Message: opts.Provider + " requires an API key",
			Type:    llm.ErrorTypeValidation,
		}
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = opts.DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	model := config.Model
	if model == "" {
		model = opts.DefaultModel
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = llm.DefaultTimeout
	}

	return &Client{
		provider: opts.Provider,
		model:    model,
		apiKey:   config.APIKey,
		baseURL:  baseURL,
		effort:   opts.ReasoningEffort,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// ChatCompletion performs a chat completion request
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := c.Serialize(req, false)
	if err != nil {
		return nil, err
	}

	respBody, _, err := c.post(ctx, body, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = respBody.Close() }()

	raw, err := io.ReadAll(respBody)
	if err != nil {
		return nil, llm.NewNetworkError("read response", err)
	}

	return c.Deserialize(raw)
}

// Serialize converts a canonical request into this provider's JSON body.
func (c *Client) Serialize(req llm.ChatRequest, streaming bool) ([]byte, error) {
	wireReq, err := c.buildRequest(req, streaming)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, &llm.Error{
			Code:    "request_error",
			Message: fmt.Sprintf("failed to serialize request: %v", err),
			Type:    llm.ErrorTypeValidation,
		}
	}
	return body, nil
}

// Deserialize parses a complete (non-streaming) response body into the
// normalized response shape.
func (c *Client) Deserialize(raw []byte) (*llm.ChatResponse, error) {
	var wireResp chatResponse
	if err := json.Unmarshal(raw, &wireResp); err != nil {
		return nil, llm.NewParseError(c.provider, err)
	}
	if len(wireResp.Choices) == 0 {
		return nil, llm.NewParseError(c.provider, fmt.Errorf("response has no choices"))
	}
	return c.convertResponse(wireResp), nil
}

// GetModelInfo returns information about the model
func (c *Client) GetModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Name:              c.model,
		Provider:          c.provider,
		SupportsTools:     true,
		SupportsVision:    true,
		SupportsThinking:  c.effort != nil,
		SupportsStreaming: true,
	}
}

// Close cleans up resources
func (c *Client) Close() error {
	return nil
}

// post sends the serialized body and returns the response body on 2xx.
// Non-2xx responses are drained and mapped to *llm.Error.
func (c *Client) post(ctx context.Context, body []byte, streaming bool) (io.ReadCloser, http.Header, error) {
	url := c.baseURL + completionsPath

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, &llm.Error{
			Code:    "request_error",
			Message: fmt.Sprintf("failed to create request: %v", err),
			Type:    llm.ErrorTypeValidation,
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	hc := c.httpClient
	if streaming {
		hc = c.noTimeoutClient()
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, llm.NewNetworkError("request failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		_ = resp.Body.Close()
		apiErr := llm.NewAPIError(c.provider, resp.StatusCode, raw)
		apiErr.RetryAfter = llm.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, nil, apiErr
	}

	return resp.Body, resp.Header, nil
}

// noTimeoutClient clones the HTTP client without a global timeout: the
// overall deadline would kill long-lived streams mid-read. Cancellation
// still flows through the request context.
func (c *Client) noTimeoutClient() *http.Client {
	clone := *c.httpClient
	clone.Timeout = 0
	return &clone
}

var _ llm.Client = (*Client)(nil)
