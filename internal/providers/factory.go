package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AI-Template-SDK/visibility-workflows/internal/config"
	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/chatgpt"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/claude"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/common"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/gemini"
)

// Overrides carries per-request settings that replace configured values.
type Overrides struct {
	OpenAIAPIKey string
}

// ProviderFor maps a platform to the vendor that serves it.
func ProviderFor(platform models.Platform) (ProviderID, error) {
	switch models.Platform(strings.ToLower(string(platform))) {
	case models.PlatformChatGPT:
		return ProviderOpenAI, nil
	case models.PlatformGemini:
		return ProviderGemini, nil
	case models.PlatformPerplexity:
		return ProviderPerplexity, nil
	case models.PlatformClaude:
		return ProviderAnthropic, nil
	default:
		return "", fmt.Errorf("unsupported platform: %s", platform)
	}
}

// NewProvider creates the provider for a platform. Every error the returned
// provider produces is a *ProviderError.
func NewProvider(ctx context.Context, platform models.Platform, cfg *config.ProvidersConfig, costService common.CostCalculator, overrides ...Overrides) (AIProvider, error) {
	if cfg == nil {
		cfg = &config.ProvidersConfig{}
	}
	var ov Overrides
	for _, o := range overrides {
		if o.OpenAIAPIKey != "" {
			ov.OpenAIAPIKey = o.OpenAIAPIKey
		}
	}

	id, err := ProviderFor(platform)
	if err != nil {
		return nil, err
	}

	var provider AIProvider
	switch id {
	case ProviderOpenAI:
		provider = chatgpt.NewProvider(cfg, ov.OpenAIAPIKey, costService)
	case ProviderPerplexity:
		provider = chatgpt.NewPerplexityProvider(cfg, costService)
	case ProviderAnthropic:
		provider = claude.NewProvider(cfg, costService)
	case ProviderGemini:
		p, err := gemini.NewProvider(ctx, cfg, costService)
		if err != nil {
			return nil, Classify(ProviderGemini, err)
		}
		provider = p
	}

	slog.Debug("[ProviderFactory] Selected provider", "platform", platform, "provider", id)
	return Classified(provider), nil
}
