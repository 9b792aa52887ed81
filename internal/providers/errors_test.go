package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestClassifyKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"status 401", &HTTPStatusError{Code: 401}, KindAuth},
		{"status 403", &HTTPStatusError{Code: 403, Body: "forbidden"}, KindAuth},
		{"api key message wins over 400", &HTTPStatusError{Code: 400, Body: "Invalid API key provided"}, KindAuth},
		{"unauthorized message", errors.New("Unauthorized"), KindAuth},
		{"quota beats 429", &HTTPStatusError{Code: 429, Body: "You exceeded your current quota"}, KindQuota},
		{"free tier limit", errors.New("generate_content_free_tier_requests, limit: 0"), KindQuota},
		{"plain 429", &HTTPStatusError{Code: 429, Body: "Too many requests"}, KindRateLimit},
		{"billing", &HTTPStatusError{Code: 402, Body: "billing hard limit reached"}, KindBilling},
		{"credit beats 400", &HTTPStatusError{Code: 400, Body: "Your credit balance is too low"}, KindBilling},
		{"status 404", &HTTPStatusError{Code: 404, Body: "model gpt-9 does not exist"}, KindInvalidRequest},
		{"invalid beats 500", &HTTPStatusError{Code: 500, Body: "invalid state"}, KindInvalidRequest},
		{"bad request text", errors.New("Bad Request"), KindInvalidRequest},
		{"status 503", &HTTPStatusError{Code: 503, Body: "overloaded"}, KindServer},
		{"status 500 empty body", &HTTPStatusError{Code: 500}, KindServer},
		{"fetch failed", errors.New("fetch failed"), KindNetwork},
		{"econnreset text", errors.New("read ECONNRESET"), KindNetwork},
		{"deadline", context.DeadlineExceeded, KindNetwork},
		{"url error", &url.Error{Op: "Post", URL: "https://api.example.com", Err: errors.New("dial tcp: connection refused")}, KindNetwork},
		{"wrapped timeout", fmt.Errorf("chat completion failed: %w", context.DeadlineExceeded), KindNetwork},
		{"unknown", errors.New("something odd happened"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(ProviderGemini, tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, tt.want.Retryable(), got.Retryable)
		})
	}
}

func TestClassifyRetryableIsFunctionOfKind(t *testing.T) {
	statuses := []int{0, 200, 400, 401, 402, 403, 404, 408, 409, 422, 429, 500, 502, 503, 504, 599}
	messages := []string{"", "quota", "billing", "invalid", "network", "timeout", "api key", "boom", "retry in 3s"}

	for _, status := range statuses {
		for _, msg := range messages {
			got := Classify(ProviderOpenAI, &HTTPStatusError{Code: status, Body: msg})
			assert.Equal(t, got.Kind.Retryable(), got.Retryable, "status=%d msg=%q", status, msg)
			again := Classify(ProviderOpenAI, &HTTPStatusError{Code: status, Body: msg})
			assert.Equal(t, got.Kind, again.Kind, "status=%d msg=%q", status, msg)
		}
	}
}

func TestRetryableKinds(t *testing.T) {
	retryable := map[ErrorKind]bool{
		KindAuth:           false,
		KindQuota:          false,
		KindRateLimit:      true,
		KindBilling:        false,
		KindInvalidRequest: false,
		KindNetwork:        true,
		KindServer:         true,
		KindUnknown:        false,
	}
	for kind, want := range retryable {
		assert.Equal(t, want, kind.Retryable(), string(kind))
	}
}

func TestClassifyPassesThroughProviderError(t *testing.T) {
	status := 418
	original := NewProviderError(ProviderErrorParams{
		Provider:   ProviderPerplexity,
		Kind:       KindUnknown,
		Message:    "custom",
		StatusCode: &status,
		Retryable:  true,
	})

	assert.Same(t, original, Classify(ProviderGemini, original))
	assert.Same(t, original, Classify(ProviderGemini, fmt.Errorf("scan failed: %w", original)))
	assert.True(t, original.Retryable, "explicit override survives")
}

func TestClassifyComposesMessage(t *testing.T) {
	got := Classify(ProviderAnthropic, &HTTPStatusError{Code: 503, Body: "upstream overloaded", Detail: "overloaded_error"})
	assert.Equal(t, "ANTHROPIC server, status 503, code overloaded_error: upstream overloaded", got.Message)
	assert.Equal(t, 503, got.Status())
	assert.Equal(t, "overloaded_error", got.ProviderCode)

	got = Classify(ProviderOpenAI, &HTTPStatusError{Code: 404, Body: "no such model"})
	assert.Equal(t, "OPENAI invalid request, status 404: no such model", got.Message)

	got = Classify(ProviderGemini, errors.New("fetch failed"))
	assert.Equal(t, "GEMINI network: fetch failed", got.Message)
	assert.Nil(t, got.StatusCode)
	assert.Equal(t, 0, got.Status())

	got = Classify(ProviderPerplexity, nil)
	assert.Equal(t, "PERPLEXITY unknown: Failed to query perplexity API", got.Message)
}

func TestClassifyOpenAIError(t *testing.T) {
	apiErr := &openai.Error{StatusCode: 429, Message: "Rate limit reached for gpt-4o-mini", Code: "rate_limit_exceeded"}

	got := Classify(ProviderOpenAI, apiErr)

	assert.Equal(t, KindRateLimit, got.Kind)
	assert.True(t, got.Retryable)
	assert.Equal(t, "rate_limit_exceeded", got.ProviderCode)
	assert.Equal(t, "OPENAI rate limit, status 429, code rate_limit_exceeded: Rate limit reached for gpt-4o-mini", got.Message)
	assert.True(t, errors.Is(got, apiErr))
}

func TestClassifyGenAIError(t *testing.T) {
	exhausted := genai.APIError{Code: 429, Message: "Resource has been exhausted (e.g. check quota).", Status: "RESOURCE_EXHAUSTED"}
	got := Classify(ProviderGemini, exhausted)
	assert.Equal(t, KindQuota, got.Kind)
	assert.False(t, got.Retryable)
	assert.Equal(t, "RESOURCE_EXHAUSTED", got.ProviderCode)

	slowDown := genai.APIError{
		Code:    429,
		Message: "Please slow down.",
		Status:  "RESOURCE_EXHAUSTED",
		Details: []map[string]any{{
			"@type":      "type.googleapis.com/google.rpc.RetryInfo",
			"retryDelay": "37s",
		}},
	}
	got = Classify(ProviderGemini, slowDown)
	assert.Equal(t, KindRateLimit, got.Kind)
	assert.Contains(t, got.Message, `"retryDelay":"37s"`)

	got = Classify(ProviderGemini, &genai.APIError{Code: 503, Message: "The model is overloaded."})
	assert.Equal(t, KindServer, got.Kind)
}

func TestClassifyRedactsSecrets(t *testing.T) {
	got := Classify(ProviderOpenAI, &HTTPStatusError{
		Code: 401,
		Body: "Incorrect key sk-proj-abcdefghijklmnop; api_key=AIzaSyA1234567890abcdef; Authorization: Bearer eyJhbGciOi.secret",
	})

	assert.Equal(t, KindAuth, got.Kind)
	assert.NotContains(t, got.Message, "abcdefghijklmnop")
	assert.NotContains(t, got.Message, "AIzaSyA1234567890abcdef")
	assert.NotContains(t, got.Message, "eyJhbGciOi.secret")
	assert.Contains(t, got.Message, "sk-<redacted>")
	assert.Contains(t, got.Message, "Bearer <redacted>")
}

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"nothing to hide", "nothing to hide"},
		{"GEMINI_API_KEY=AIzaSyQWERTYUIOPasdfghjkl", "<redacted_kv>"},
		{"key AIzaSyQWERTYUIOPasdfghjkl leaked", "key <redacted_key> leaked"},
		{"Bearer abc123 ", "Bearer <redacted>"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactSecrets(tt.in), tt.in)
	}
}

func TestFixHint(t *testing.T) {
	assert.Contains(t, FixHint(&ProviderError{Kind: KindAuth}), "API key")
	assert.Contains(t, FixHint(&ProviderError{Kind: KindRateLimit}), "rate-limited")
	assert.Equal(t, "Inspect provider dashboard logs and raw SDK error details.", FixHint(&ProviderError{Kind: KindUnknown}))
	assert.Equal(t, "Inspect provider dashboard logs and raw SDK error details.", FixHint(nil))

	for _, kind := range []ErrorKind{KindAuth, KindQuota, KindRateLimit, KindBilling, KindInvalidRequest, KindNetwork, KindServer} {
		assert.NotEqual(t, FixHint(&ProviderError{Kind: KindUnknown}), FixHint(&ProviderError{Kind: kind}), string(kind))
	}
}
