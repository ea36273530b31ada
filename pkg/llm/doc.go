// Package llm defines the provider-agnostic model for chat completions.
//
// It contains the canonical request/response types that every provider
// codec translates to and from, along with the pieces that are shared by
// all providers:
//
// - Client interface: core completion + streaming contract
// - Message types: text, binary attachments, tool calls and tool results
// - Usage: additive token accounting (input/output/cache/thinking)
// - Streaming: normalized delta events regardless of provider wire format
// - Retry: exponential backoff decorator honoring Retry-After hints
// - Tool loop: multi-turn orchestration with externally executed tools
// - Error handling: standardized error taxonomy
//
// Provider implementations live in separate packages under /pkg/providers/
// to maintain clean separation of concerns and avoid import cycles.
package llm
