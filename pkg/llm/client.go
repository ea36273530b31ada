// Client interfaces and model metadata
package llm

import "context"

// Client defines the core interface that all LLM provider clients must
// implement. Implementations are stateless with respect to any single call
// and safe to invoke concurrently for independent requests.
type Client interface {
	// ChatCompletion performs a chat completion request
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// StreamChatCompletion performs a streaming chat completion request.
	// The returned channel is closed after a terminal event; events arrive
	// in the order produced by the provider.
	StreamChatCompletion(ctx context.Context, req ChatRequest) (<-chan StreamEvent, error)

	// GetModelInfo returns information about the model being used
	GetModelInfo() ModelInfo

	// Close cleans up any resources used by the client
	Close() error
}

// ChatCompleter is the minimal completion contract. Any client
// implementing it can be wrapped by the retry decorator and the tool loop.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ModelInfo contains information about the model
type ModelInfo struct {
	Name              string `json:"name"`
	Provider          string `json:"provider"`
	SupportsTools     bool   `json:"supports_tools"`
	SupportsVision    bool   `json:"supports_vision"`
	SupportsThinking  bool   `json:"supports_thinking"`
	SupportsStreaming bool   `json:"supports_streaming"`
}

// TokenSupplier provides short-lived bearer credentials. It is consulted
// once per outbound request by providers that use token auth (Vertex).
type TokenSupplier interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// TokenSupplierFunc adapts a function to the TokenSupplier interface.
type TokenSupplierFunc func(ctx context.Context) (string, error)

// GetAccessToken implements TokenSupplier.
func (f TokenSupplierFunc) GetAccessToken(ctx context.Context) (string, error) {
	return f(ctx)
}
