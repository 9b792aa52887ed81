package providers

import (
	"context"
	"time"

	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/common"
)

type ProviderID = common.ProviderID

const (
	ProviderOpenAI     = common.ProviderOpenAI
	ProviderGemini     = common.ProviderGemini
	ProviderPerplexity = common.ProviderPerplexity
	ProviderAnthropic  = common.ProviderAnthropic
)

// AIProvider sends one prompt to one vendor and returns plain text.
type AIProvider interface {
	Query(ctx context.Context, prompt string) (*common.AIResponse, error)
	GetProviderName() ProviderID
}

// classifiedProvider makes sure no raw SDK error leaves this package.
type classifiedProvider struct {
	inner AIProvider
}

// Classified wraps p so every failure it returns is a *ProviderError.
func Classified(p AIProvider) AIProvider {
	if _, ok := p.(*classifiedProvider); ok {
		return p
	}
	return &classifiedProvider{inner: p}
}

func (c *classifiedProvider) GetProviderName() ProviderID {
	return c.inner.GetProviderName()
}

func (c *classifiedProvider) Query(ctx context.Context, prompt string) (*common.AIResponse, error) {
	resp, err := c.inner.Query(ctx, prompt)
	if err != nil {
		return nil, Classify(c.inner.GetProviderName(), err)
	}
	return resp, nil
}

// QueryWithRetry runs a single prompt through WithRetry.
func QueryWithRetry(ctx context.Context, p AIProvider, prompt string, policy RetryPolicy) (*common.AIResponse, error) {
	return WithRetry(ctx, p.GetProviderName(), policy, func(ctx context.Context) (*common.AIResponse, error) {
		return p.Query(ctx, prompt)
	})
}

// PolicyFromConfig builds the retry policy from configured limits.
func PolicyFromConfig(maxAttempts int, baseDelay, maxDelay time.Duration) RetryPolicy {
	return RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: baseDelay, MaxDelay: maxDelay}
}
