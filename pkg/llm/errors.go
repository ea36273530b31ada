// Error types and handling
package llm

import (
	"fmt"
	"strconv"
	"time"
)

// Error taxonomy. Every failure a provider client can surface falls into
// one of these types; none are swallowed.
const (
	// ErrorTypeNetwork covers connection failures and timeouts; retryable.
	ErrorTypeNetwork = "network_error"
	// ErrorTypeAPI is a non-2xx provider response carrying status and body.
	ErrorTypeAPI = "api_error"
	// ErrorTypeParse is a malformed response body; fatal, never retried.
	ErrorTypeParse = "parse_error"
	// ErrorTypeValidation is a caller configuration or request shape error.
	ErrorTypeValidation = "validation_error"
	// ErrorTypeCapability means the provider does not support a requested
	// feature; fails immediately, distinct from transport errors.
	ErrorTypeCapability = "capability_error"
	// ErrorTypeExhausted is the tool loop hitting its iteration bound.
	ErrorTypeExhausted = "iterations_exhausted"
)

// Error represents a standardized LLM error
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	StatusCode int    `json:"status_code,omitempty"`

	// RetryAfter carries a provider Retry-After hint, when present. The
	// retry decorator uses it in place of the computed backoff delay.
	RetryAfter time.Duration `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// IsRetryable reports whether the error is in the transient set: network
// failures, HTTP 429 and the retryable 5xx codes.
func (e *Error) IsRetryable() bool {
	if e.Type == ErrorTypeNetwork {
		return true
	}
	switch e.StatusCode {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(op string, err error) *Error {
	return &Error{
		Code:    "network_error",
		Message: fmt.Sprintf("%s: %v", op, err),
		Type:    ErrorTypeNetwork,
	}
}

// NewAPIError wraps a non-2xx provider response with its status and body.
func NewAPIError(provider string, statusCode int, body []byte) *Error {
	return &Error{
		Code:       fmt.Sprintf("%s_%d", provider, statusCode),
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, string(body)),
		Type:       ErrorTypeAPI,
		StatusCode: statusCode,
	}
}

// NewParseError wraps a malformed response body. Parse errors indicate
// protocol drift and must never be retried.
func NewParseError(provider string, err error) *Error {
	return &Error{
		Code:    provider + "_parse_error",
		Message: fmt.Sprintf("failed to parse %s response: %v", provider, err),
		Type:    ErrorTypeParse,
	}
}

// ParseRetryAfter interprets a Retry-After header value, either a delay in
// seconds or an HTTP date. Returns 0 when the value is absent or invalid.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := time.Parse(time.RFC1123, value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// NewCapabilityError reports a feature the provider cannot serve.
func NewCapabilityError(provider, feature string) *Error {
	return &Error{
		Code:    "unsupported_capability",
		Message: fmt.Sprintf("%s does not support %s", provider, feature),
		Type:    ErrorTypeCapability,
	}
}
