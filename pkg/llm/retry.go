// Retry decorator for chat completions with exponential backoff.
//
// Basic usage with default configuration (4 attempts, 1s base delay, 2x
// backoff, 3 minute overall deadline):
//
//	client, _ := openai.NewClient(config)
//	retryClient := llm.WithRetry(client)
//	resp, err := retryClient.ChatCompletion(ctx, request)
//
// Custom retry configuration:
//
//	retryClient := llm.WithRetry(client, llm.RetryConfig{
//		MaxAttempts: 6,
//		BaseDelay:   500 * time.Millisecond,
//	})
package llm

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// secureRandomFloat64 generates a cryptographically secure random float64 between 0 and 1
func secureRandomFloat64() (float64, error) {
	var bytes [8]byte
	_, err := rand.Read(bytes[:])
	if err != nil {
		return 0, err
	}
	return float64(binary.BigEndian.Uint64(bytes[:])) / float64(^uint64(0)), nil
}

// RetryConfig defines configuration options for the retry mechanism.
type RetryConfig struct {
	// MaxAttempts is the total number of requests allowed, including the
	// first one (default: 4).
	MaxAttempts int

	// BaseDelay is the initial delay between attempts (default: 1 second).
	BaseDelay time.Duration

	// MaxDelay caps the delay between attempts (default: 60 seconds).
	MaxDelay time.Duration

	// BackoffFactor multiplies the delay after each attempt (default: 2.0).
	BackoffFactor float64

	// Jitter randomizes delays to prevent thundering herd (default: true).
	// Multiplies each delay by a random factor between 0.5 and 1.5.
	Jitter bool

	// OverallTimeout bounds one logical call across all attempts,
	// including the backoff sleeps (default: 3 minutes).
	OverallTimeout time.Duration

	// Logger receives per-attempt debug records. Defaults to a Nop logger.
	Logger zerolog.Logger
}

// DefaultRetryConfig returns a sensible default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    4,
		BaseDelay:      1 * time.Second,
		MaxDelay:       60 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         true,
		OverallTimeout: DefaultTimeout,
		Logger:         zerolog.Nop(),
	}
}

// RetryClient wraps a Client with retry functionality.
type RetryClient struct {
	client Client
	config RetryConfig
}

// WithRetry decorates a client so transient failures (connection errors,
// non-cancellation timeouts, HTTP 429/500/502/503/504) are retried with
// exponential backoff. A Retry-After hint on the error replaces the
// computed delay for that attempt.
//
// For streaming calls, a retry only applies while establishing the
// connection: once StreamChatCompletion has returned an event channel, the
// stream is never re-driven, so no bytes are delivered twice.
func WithRetry(client Client, config ...RetryConfig) *RetryClient {
	cfg := DefaultRetryConfig()
	if len(config) > 0 {
		cfg = config[0]
		if cfg.MaxAttempts <= 0 {
			cfg.MaxAttempts = 4
		}
		if cfg.BaseDelay <= 0 {
			cfg.BaseDelay = 1 * time.Second
		}
		if cfg.MaxDelay <= 0 {
			cfg.MaxDelay = 60 * time.Second
		}
		if cfg.BackoffFactor <= 0 {
			cfg.BackoffFactor = 2.0
		}
		if cfg.OverallTimeout <= 0 {
			cfg.OverallTimeout = DefaultTimeout
		}
	}

	return &RetryClient{client: client, config: cfg}
}

// ChatCompletion executes the chat completion with retry logic.
func (r *RetryClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.OverallTimeout)
	defer cancel()

	var resp *ChatResponse
	err := r.do(ctx, func() error {
		var callErr error
		resp, callErr = r.client.ChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// StreamChatCompletion opens the stream with retry logic. Only the
// connection-establishment phase is retried; the returned channel is
// consumed exactly once.
func (r *RetryClient) StreamChatCompletion(ctx context.Context, req ChatRequest) (<-chan StreamEvent, error) {
	// The overall deadline cannot wrap stream consumption without cutting
	// off long responses, so it applies to connection establishment only.
	var ch <-chan StreamEvent
	err := r.do(ctx, func() error {
		var callErr error
		ch, callErr = r.client.StreamChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// GetModelInfo delegates to the wrapped client.
func (r *RetryClient) GetModelInfo() ModelInfo {
	return r.client.GetModelInfo()
}

// Close delegates to the wrapped client.
func (r *RetryClient) Close() error {
	return r.client.Close()
}

func (r *RetryClient) do(ctx context.Context, call func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == r.config.MaxAttempts {
			break
		}
		if !isRetryable(err) {
			return err
		}

		delay := r.calculateDelay(attempt - 1)
		var llmErr *Error
		if errors.As(err, &llmErr) && llmErr.RetryAfter > 0 {
			delay = llmErr.RetryAfter
		}

		r.config.Logger.Debug().
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("retrying chat completion")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// isRetryable determines if an error should trigger another attempt.
// Cancellation is surfaced as-is, never retried.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}
	return false
}

// calculateDelay computes the delay for a given retry attempt using exponential backoff
func (r *RetryClient) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.BaseDelay) * math.Pow(r.config.BackoffFactor, float64(attempt))

	if r.config.Jitter {
		randomValue, err := secureRandomFloat64()
		if err != nil {
			randomValue = 1.0
		}
		delay *= 0.5 + randomValue
	}

	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	return time.Duration(delay)
}

// Ensure RetryClient implements Client
var _ Client = (*RetryClient)(nil)
