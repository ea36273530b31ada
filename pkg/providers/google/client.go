// Package google implements the Gemini generateContent wire protocol,
// reachable either through AI Studio (API key auth) or Vertex AI
// (bearer token auth). The request and response bodies are identical in
// both modes; only the URL and the auth header differ.
package google

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
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	defaultVertexLocation = "us-central1"
)

// Client implements llm.Client for the Gemini API.
type Client struct {
	model         string
	apiKey        string
	baseURL       string
	project       string
	location      string
	tokenSupplier llm.TokenSupplier
	httpClient    *http.Client
}

// NewClient creates a new Google client. Setting a TokenSupplier on the
// config selects Vertex mode, which also requires Project.
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.TokenSupplier == nil && config.APIKey == "" {
		return nil, &llm.Error{
			Code:    "missing_api_key",
			Message: "google requires an API key or a token supplier",
			Type:    llm.ErrorTypeValidation,
		}
	}
	if config.TokenSupplier != nil && config.Project == "" {
		return nil, &llm.Error{
			Code:    "missing_project",
			Message: "vertex mode requires a project",
			Type:    llm.ErrorTypeValidation,
		}
	}

	model := config.Model
	if model == "" {
		model = llm.DefaultGoogleModel
	}

	location := config.Location
	if location == "" {
		location = defaultVertexLocation
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = llm.DefaultTimeout
	}

	return &Client{
		model:         model,
		apiKey:        config.APIKey,
		baseURL:       strings.TrimSuffix(config.BaseURL, "/"),
		project:       config.Project,
		location:      location,
		tokenSupplier: config.TokenSupplier,
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

	body, err := c.Serialize(req)
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

	return c.Deserialize(raw)
}

// Deserialize parses a complete response body into the normalized shape.
func (c *Client) Deserialize(raw []byte) (*llm.ChatResponse, error) {
	var wireResp generateResponse
	if err := json.Unmarshal(raw, &wireResp); err != nil {
		return nil, llm.NewParseError("google", err)
	}
	return convertResponse(c.model, wireResp)
}

// GetModelInfo returns information about the model
func (c *Client) GetModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Name:              c.model,
		Provider:          "google",
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

func (c *Client) vertexMode() bool {
	return c.tokenSupplier != nil
}

// endpoint builds the method URL for the active auth mode. AI Studio
// carries the key as a query parameter; Vertex uses a regional host and
// a bearer header instead.
func (c *Client) endpoint(streaming bool) string {
	method := "generateContent"
	query := ""
	if streaming {
		method = "streamGenerateContent"
		query = "?alt=sse"
	}

	if c.vertexMode() {
		base := c.baseURL
		if base == "" {
			base = fmt.Sprintf("https://%s-aiplatform.googleapis.com", c.location)
		}
		return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:%s%s",
			base, c.project, c.location, c.model, method, query)
	}

	base := c.baseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if query == "" {
		query = "?key=" + c.apiKey
	} else {
		query += "&key=" + c.apiKey
	}
	return fmt.Sprintf("%s/v1beta/models/%s:%s%s", base, c.model, method, query)
}

func (c *Client) post(ctx context.Context, body []byte, streaming bool) (io.ReadCloser, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(streaming), bytes.NewReader(body))
	if err != nil {
		return nil, &llm.Error{
			Code:    "request_error",
			Message: fmt.Sprintf("failed to create request: %v", err),
			Type:    llm.ErrorTypeValidation,
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.vertexMode() {
		token, err := c.tokenSupplier.GetAccessToken(ctx)
		if err != nil {
			return nil, &llm.Error{
				Code:    "token_error",
				Message: "failed to obtain access token: " + err.Error(),
				Type:    llm.ErrorTypeNetwork,
			}
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
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
		apiErr := llm.NewAPIError("google", resp.StatusCode, raw)
		apiErr.RetryAfter = llm.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, apiErr
	}

	return resp.Body, nil
}

var _ llm.Client = (*Client)(nil)
