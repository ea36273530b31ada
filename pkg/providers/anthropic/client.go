// Package anthropic implements the Anthropic Messages wire protocol.
package anthropic

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

const (
	DefaultBaseURL = "https://api.anthropic.com"

	messagesPath = "/v1/messages"
	// apiVersion is required on every request; bumping it is a protocol
	// change that must be revalidated against the whole codec.
	apiVersion = "2023-06-01"
)

// DefaultMaxTokens applies when the request does not set max_tokens.
// Anthropic rejects requests without one.
const DefaultMaxTokens = 8192

// Client implements llm.Client for the Anthropic Messages API.
type Client struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Anthropic client
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, &llm.Error{
			Code:    "missing_api_key",
			Message: "anthropic requires an API key",
			Type:    llm.ErrorTypeValidation,
		}
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	model := config.Model
	if model == "" {
		model = llm.DefaultAnthropicModel
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = llm.DefaultTimeout
	}

	return &Client{
		model:   model,
		apiKey:  config.APIKey,
		baseURL: baseURL,
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

	respBody, err := c.post(ctx, body, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = respBody.Close() }()

	raw, err := io.ReadAll(respBody)
	if err != nil {
		return nil, llm.NewNetworkError("read response", err)
	}

	resp, err := c.Deserialize(raw)
	if err != nil {
		return nil, err
	}

	// Structured output is emulated through a forced tool; fold its
	// arguments back into plain content so callers see one contract.
	if usesSchemaEmulation(req) {
		resolveJSONResponseTool(resp)
	}
	return resp, nil
}

// Deserialize parses a complete response body into the normalized shape.
func (c *Client) Deserialize(raw []byte) (*llm.ChatResponse, error) {
	var wireResp messagesResponse
	if err := json.Unmarshal(raw, &wireResp); err != nil {
		return nil, llm.NewParseError("anthropic", err)
	}
	return convertResponse(wireResp), nil
}

// GetModelInfo returns information about the model
func (c *Client) GetModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Name:              c.model,
		Provider:          "anthropic",
		SupportsTools:     true,
		SupportsVision:    true,
		SupportsThinking:  true,
		SupportsStreaming: true,
	}
}

// Close cleans up resources
func (c *Client) Close() error {
	return nil
}

func (c *Client) post(ctx context.Context, body []byte, streaming bool) (io.ReadCloser, error) {
	url := c.baseURL + messagesPath

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &llm.Error{
			Code:    "request_error",
			Message: fmt.Sprintf("failed to create request: %v", err),
			Type:    llm.ErrorTypeValidation,
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	hc := c.httpClient
	if streaming {
		clone := *c.httpClient
		clone.Timeout = 0
		hc = &clone
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, llm.NewNetworkError("request failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		_ = resp.Body.Close()
		apiErr := llm.NewAPIError("anthropic", resp.StatusCode, raw)
		apiErr.RetryAfter = llm.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, apiErr
	}

	return resp.Body, nil
}

var _ llm.Client = (*Client)(nil)
