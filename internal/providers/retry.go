package providers

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/AI-Template-SDK/visibility-workflows/internal/metrics"
)

// RetryPolicy controls WithRetry. Zero values take the defaults below.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Sleep waits for d or until ctx is done. Tests replace it to avoid real waits.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait with the attempt that just failed.
	OnRetry func(attempt int, delay time.Duration, err *ProviderError)
}

// DefaultRetryPolicy is three attempts starting at 1.5s, never waiting more than a minute.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   1500 * time.Millisecond,
	MaxDelay:    60 * time.Second,
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

// WithRetry runs op until it succeeds, fails with a non-retryable error or runs out
// of attempts. Failures come back as the last classified *ProviderError.
func WithRetry[T any](ctx context.Context, provider ProviderID, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	policy = policy.withDefaults()

	var zero T
	var lastErr *ProviderError
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		metrics.ProviderAttempts.WithLabelValues(string(provider)).Inc()

		start := time.Now()
		result, err := op(ctx)
		metrics.ProviderLatency.WithLabelValues(string(provider)).Observe(time.Since(start).Seconds())
		if err == nil {
			return result, nil
		}

		lastErr = Classify(provider, err)
		metrics.ProviderErrors.WithLabelValues(string(provider), string(lastErr.Kind)).Inc()

		if !lastErr.Retryable || attempt >= policy.MaxAttempts {
			slog.Warn("[WithRetry] Provider call failed",
				"provider", provider,
				"attempt", attempt,
				"kind", lastErr.Kind,
				"retryable", lastErr.Retryable)
			return zero, lastErr
		}

		delay := BackoffDelay(attempt, policy.BaseDelay, policy.MaxDelay, lastErr)
		slog.Debug("[WithRetry] Retrying provider call",
			"provider", provider,
			"attempt", attempt,
			"kind", lastErr.Kind,
			"delay", delay)
		metrics.RetryDelay.WithLabelValues(string(provider)).Observe(delay.Seconds())
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, delay, lastErr)
		}

		if err := policy.Sleep(ctx, delay); err != nil {
			return zero, errors.Join(err, lastErr)
		}
	}

	// MaxAttempts is at least one, so the loop always returns.
	return zero, lastErr
}

// BackoffDelay is base*2^(attempt-1), raised to the provider's cooldown hint when
// the error carries one, and capped at maxDelay.
func BackoffDelay(attempt int, base, maxDelay time.Duration, err *ProviderError) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := maxDelay
	if f := float64(base) * math.Pow(2, float64(attempt-1)); f < float64(maxDelay) {
		delay = time.Duration(f)
	}

	if hint, ok := retryHint(err); ok && hint > delay {
		delay = hint
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

var (
	retryInRe    = regexp.MustCompile(`(?i)retry in\s+(\d+(?:\.\d+)?)s`)
	retryDelayRe = regexp.MustCompile(`(?i)"retryDelay":"(\d+)s"`)
)

// retryHint extracts a provider cooldown from the classified message.
func retryHint(err *ProviderError) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	if m := retryInRe.FindStringSubmatch(err.Message); m != nil {
		secs, perr := strconv.ParseFloat(m[1], 64)
		if perr == nil {
			return hintDuration(math.Ceil(secs * 1000)), true
		}
	}
	if m := retryDelayRe.FindStringSubmatch(err.Message); m != nil {
		secs, perr := strconv.ParseFloat(m[1], 64)
		if perr == nil {
			return hintDuration(secs * 1000), true
		}
	}
	return 0, false
}

// hintDuration converts milliseconds, saturating absurd hints instead of overflowing.
func hintDuration(ms float64) time.Duration {
	const ceiling = float64(24 * time.Hour / time.Millisecond)
	if ms > ceiling {
		ms = ceiling
	}
	return time.Duration(ms) * time.Millisecond
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
