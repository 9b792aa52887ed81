package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/AI-Template-SDK/visibility-workflows/internal/config"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/common"
)

const defaultModel = "claude-3-5-haiku-latest"

type Provider struct {
	client      anthropic.Client
	model       string
	hasKey      bool
	costService common.CostCalculator
}

// Options overrides client settings; used by tests and proxies.
type Options struct {
	BaseURL string
}

func NewProvider(cfg *config.ProvidersConfig, costService common.CostCalculator, opts ...Options) *Provider {
	if cfg == nil {
		cfg = &config.ProvidersConfig{}
	}
	if costService == nil {
		costService = common.NoCost{}
	}
	model := cfg.AnthropicModel
	if model == "" {
		model = defaultModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.AnthropicAPIKey),
		option.WithMaxRetries(0),
	}
	for _, o := range opts {
		if o.BaseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(o.BaseURL))
		}
	}

	return &Provider{
		client:      anthropic.NewClient(reqOpts...),
		model:       model,
		hasKey:      cfg.AnthropicAPIKey != "",
		costService: costService,
	}
}

func (p *Provider) GetProviderName() common.ProviderID {
	return common.ProviderAnthropic
}

func (p *Provider) Query(ctx context.Context, prompt string) (*common.AIResponse, error) {
	if !p.hasKey {
		return nil, errors.New("Anthropic API key missing")
	}

	response, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   600,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0.7),
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic messages request failed: %w", err)
	}

	model := string(response.Model)
	if model == "" {
		model = p.model
	}
	in := int(response.Usage.InputTokens)
	out := int(response.Usage.OutputTokens)

	return &common.AIResponse{
		Response:     extractResponseText(*response),
		Model:        model,
		InputTokens:  in,
		OutputTokens: out,
		Cost:         p.costService.CalculateCost(string(common.ProviderAnthropic), model, in, out),
	}, nil
}

func extractResponseText(response anthropic.Message) string {
	var textParts []string

	for _, block := range response.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			textParts = append(textParts, variant.Text)
		}
	}

	return strings.Join(textParts, "")
}
