package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleep captures requested delays without waiting.
type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func failingWith(status int, body string, calls *int) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		*calls++
		return "", &HTTPStatusError{Code: status, Body: body}
	}
}

func TestWithRetryExhaustsRetryableKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{"rate limit", 429, "slow down", KindRateLimit},
		{"server", 502, "bad gateway", KindServer},
		{"network", 0, "fetch failed", KindNetwork},
	}

	for _, tt := range tests {
		for _, maxAttempts := range []int{1, 3, 5} {
			t.Run(tt.name, func(t *testing.T) {
				calls := 0
				rec := &recordingSleep{}
				policy := RetryPolicy{MaxAttempts: maxAttempts, Sleep: rec.sleep}

				_, err := WithRetry(context.Background(), ProviderGemini, policy, failingWith(tt.status, tt.body, &calls))

				var perr *ProviderError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, tt.kind, perr.Kind)
				assert.Equal(t, maxAttempts, calls)
				assert.Len(t, rec.delays, maxAttempts-1)
			})
		}
	}
}

func TestWithRetryStopsOnNonRetryableKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{"auth", 401, "unauthorized", KindAuth},
		{"quota", 429, "exceeded your current quota", KindQuota},
		{"billing", 402, "payment required", KindBilling},
		{"invalid request", 400, "bad request", KindInvalidRequest},
		{"unknown", 0, "mystery", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			rec := &recordingSleep{}
			policy := RetryPolicy{MaxAttempts: 5, Sleep: rec.sleep}

			_, err := WithRetry(context.Background(), ProviderOpenAI, policy, failingWith(tt.status, tt.body, &calls))

			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.kind, perr.Kind)
			assert.Equal(t, 1, calls)
			assert.Empty(t, rec.delays)
		})
	}
}

func TestWithRetrySucceedsOnAttemptK(t *testing.T) {
	for k := 1; k <= 3; k++ {
		calls := 0
		rec := &recordingSleep{}
		op := func(context.Context) (string, error) {
			calls++
			if calls < k {
				return "", &HTTPStatusError{Code: 503, Body: "overloaded"}
			}
			return "HubSpot is great", nil
		}

		got, err := WithRetry(context.Background(), ProviderPerplexity, RetryPolicy{Sleep: rec.sleep}, op)

		require.NoError(t, err)
		assert.Equal(t, "HubSpot is great", got)
		assert.Equal(t, k, calls)
		assert.Len(t, rec.delays, k-1)
	}
}

func TestWithRetryReturnsLastError(t *testing.T) {
	calls := 0
	op := func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, &HTTPStatusError{Code: 503, Body: "first"}
		}
		return 0, &HTTPStatusError{Code: 429, Body: "second"}
	}
	rec := &recordingSleep{}

	_, err := WithRetry(context.Background(), ProviderGemini, RetryPolicy{MaxAttempts: 2, Sleep: rec.sleep}, op)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindRateLimit, perr.Kind)
	assert.Contains(t, perr.Message, "second")
}

func TestWithRetryDefaultDelays(t *testing.T) {
	calls := 0
	rec := &recordingSleep{}

	_, err := WithRetry(context.Background(), ProviderGemini, RetryPolicy{Sleep: rec.sleep}, failingWith(500, "boom", &calls))

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 3000 * time.Millisecond}, rec.delays)
}

func TestWithRetryHonoursRetryHints(t *testing.T) {
	tests := []struct {
		name string
		body string
		want time.Duration
	}{
		{"retry in fractional seconds", "Please retry in 37.2s.", 37200 * time.Millisecond},
		{"retry in rounds up", "Please retry in 2.0001s", 2001 * time.Millisecond},
		{"retryDelay detail", `quota details [{"retryDelay":"12s"}]`, 12 * time.Second},
		{"hint below backoff", "retry in 0.5s", 1500 * time.Millisecond},
		{"hint above ceiling", "retry in 600s", 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			rec := &recordingSleep{}

			_, _ = WithRetry(context.Background(), ProviderGemini, RetryPolicy{MaxAttempts: 2, Sleep: rec.sleep}, failingWith(429, tt.body, &calls))

			require.Len(t, rec.delays, 1)
			assert.Equal(t, tt.want, rec.delays[0])
		})
	}
}

func TestWithRetryStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	op := func(context.Context) (string, error) {
		calls++
		cancel()
		return "", &HTTPStatusError{Code: 503, Body: "unavailable"}
	}

	_, err := WithRetry(ctx, ProviderAnthropic, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour}, op)

	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, context.Canceled))
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindServer, perr.Kind)
}

func TestWithRetryCallsOnRetry(t *testing.T) {
	calls := 0
	var attempts []int
	policy := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   10 * time.Millisecond,
		Sleep:       (&recordingSleep{}).sleep,
		OnRetry: func(attempt int, delay time.Duration, err *ProviderError) {
			attempts = append(attempts, attempt)
			assert.Equal(t, KindServer, err.Kind)
		},
	}

	_, _ = WithRetry(context.Background(), ProviderGemini, policy, failingWith(500, "boom", &calls))

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestBackoffDelayBounds(t *testing.T) {
	base := 1500 * time.Millisecond
	ceiling := 60 * time.Second

	for n := 1; n <= 64; n++ {
		d := BackoffDelay(n, base, ceiling, nil)
		assert.LessOrEqual(t, d, ceiling, "attempt %d", n)

		computed := float64(base) * float64(uint64(1)<<uint(min(n-1, 62)))
		if computed <= float64(ceiling) {
			assert.GreaterOrEqual(t, d, time.Duration(computed), "attempt %d", n)
		} else {
			assert.Equal(t, ceiling, d, "attempt %d", n)
		}
	}
}

func TestBackoffDelayWithHint(t *testing.T) {
	hinted := Classify(ProviderGemini, &HTTPStatusError{Code: 429, Body: "retry in 20s"})

	assert.Equal(t, 20*time.Second, BackoffDelay(1, 1500*time.Millisecond, 60*time.Second, hinted))
	assert.Equal(t, 24*time.Second, BackoffDelay(5, 1500*time.Millisecond, 60*time.Second, hinted))
	assert.Equal(t, 60*time.Second, BackoffDelay(10, 1500*time.Millisecond, 60*time.Second, hinted))
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
