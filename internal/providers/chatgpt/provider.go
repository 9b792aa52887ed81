package chatgpt

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/AI-Template-SDK/visibility-workflows/internal/config"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/common"
)

// Provider talks to ChatGPT or to any OpenAI-compatible endpoint such as Perplexity.
type Provider struct {
	client      openai.Client
	opts        Options
	costService common.CostCalculator
}

// NewProvider creates a ChatGPT provider. apiKeyOverride, when set, replaces the
// configured key for this provider only.
func NewProvider(cfg *config.ProvidersConfig, apiKeyOverride string, costService common.CostCalculator) *Provider {
	if cfg == nil {
		cfg = &config.ProvidersConfig{}
	}
	key := cfg.OpenAIAPIKey
	if apiKeyOverride != "" {
		key = apiKeyOverride
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = defaultChatGPTModel
	}
	temperature := 0.7

	return New(Options{
		ID:          common.ProviderOpenAI,
		APIKey:      key,
		Model:       model,
		MaxTokens:   500,
		Temperature: &temperature,
	}, costService)
}

// NewPerplexityProvider creates a provider for Perplexity's OpenAI-compatible API.
func NewPerplexityProvider(cfg *config.ProvidersConfig, costService common.CostCalculator) *Provider {
	if cfg == nil {
		cfg = &config.ProvidersConfig{}
	}
	model := cfg.PerplexityModel
	if model == "" {
		model = defaultPerplexityModel
	}
	baseURL := cfg.PerplexityBaseURL
	if baseURL == "" {
		baseURL = defaultPerplexityURL
	}

	return New(Options{
		ID:                common.ProviderPerplexity,
		APIKey:            cfg.PerplexityAPIKey,
		BaseURL:           baseURL,
		Model:             model,
		MaxTokens:         600,
		MissingKeyMessage: "Perplexity API key missing",
	}, costService)
}

// New builds a provider from explicit options.
func New(opts Options, costService common.CostCalculator) *Provider {
	if costService == nil {
		costService = common.NoCost{}
	}
	if opts.ID == "" {
		opts.ID = common.ProviderOpenAI
	}

	// Retries are owned by providers.WithRetry, not by the SDK.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &Provider{
		client:      openai.NewClient(reqOpts...),
		opts:        opts,
		costService: costService,
	}
}

// GetProviderName returns the name of this provider
func (p *Provider) GetProviderName() common.ProviderID {
	return p.opts.ID
}

// Model returns the model requests are sent to.
func (p *Provider) Model() string {
	return p.opts.Model
}
