package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		retryable bool
	}{
		{"network error", &Error{Type: ErrorTypeNetwork}, true},
		{"rate limited", &Error{Type: ErrorTypeAPI, StatusCode: 429}, true},
		{"server error", &Error{Type: ErrorTypeAPI, StatusCode: 500}, true},
		{"bad gateway", &Error{Type: ErrorTypeAPI, StatusCode: 502}, true},
		{"unavailable", &Error{Type: ErrorTypeAPI, StatusCode: 503}, true},
		{"gateway timeout", &Error{Type: ErrorTypeAPI, StatusCode: 504}, true},
		{"bad request", &Error{Type: ErrorTypeAPI, StatusCode: 400}, false},
		{"unauthorized", &Error{Type: ErrorTypeAPI, StatusCode: 401}, false},
		{"not found", &Error{Type: ErrorTypeAPI, StatusCode: 404}, false},
		{"parse error", &Error{Type: ErrorTypeParse}, false},
		{"validation error", &Error{Type: ErrorTypeValidation}, false},
		{"capability error", &Error{Type: ErrorTypeCapability}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.IsRetryable())
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, ParseRetryAfter("30"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(""))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("-5"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("not-a-number"))

	t.Run("http_date", func(t *testing.T) {
		at := time.Now().Add(45 * time.Second).UTC()
		d := ParseRetryAfter(at.Format(time.RFC1123))
		assert.Greater(t, d, 40*time.Second)
		assert.LessOrEqual(t, d, 45*time.Second)
	})

	t.Run("past_date", func(t *testing.T) {
		at := time.Now().Add(-time.Minute).UTC()
		assert.Equal(t, time.Duration(0), ParseRetryAfter(at.Format(time.RFC1123)))
	})
}

func TestNewAPIError(t *testing.T) {
	err := NewAPIError("openai", 429, []byte(`{"error":"rate limited"}`))
	assert.Equal(t, "openai_429", err.Code)
	assert.Equal(t, 429, err.StatusCode)
	assert.Equal(t, ErrorTypeAPI, err.Type)
	assert.Contains(t, err.Error(), "rate limited")
	assert.True(t, err.IsRetryable())
}
