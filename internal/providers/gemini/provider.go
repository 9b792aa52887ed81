package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/AI-Template-SDK/visibility-workflows/internal/config"
	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/common"
)

// Provider queries Gemini, walking a list of candidate models until one exists.
type Provider struct {
	client      *genai.Client
	models      []string
	costService common.CostCalculator
}

// Options overrides client settings; used by tests and proxies.
type Options struct {
	BaseURL string
}

// NewProvider creates a Gemini provider from the providers configuration.
func NewProvider(ctx context.Context, cfg *config.ProvidersConfig, costService common.CostCalculator, opts ...Options) (*Provider, error) {
	if cfg == nil {
		cfg = &config.ProvidersConfig{}
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is required: Gemini API key missing")
	}
	if costService == nil {
		costService = common.NoCost{}
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.GeminiAPIKey),
		Backend: genai.BackendGeminiAPI,
	}
	for _, o := range opts {
		if strings.TrimSpace(o.BaseURL) != "" {
			cc.HTTPOptions.BaseURL = strings.TrimSpace(o.BaseURL)
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	fallbacks := cfg.GeminiFallbacks
	if len(fallbacks) == 0 {
		fallbacks = config.DefaultGeminiModels
	}

	return &Provider{
		client:      client,
		models:      CandidateModels(cfg.GeminiModel, fallbacks),
		costService: costService,
	}, nil
}

// GetProviderName returns the name of this provider
func (p *Provider) GetProviderName() common.ProviderID {
	return common.ProviderGemini
}

// Models returns the candidate models in the order they are tried.
func (p *Provider) Models() []string {
	return append([]string(nil), p.models...)
}

// CandidateModels puts the configured model first, followed by the fallbacks
// without duplicates.
func CandidateModels(configured string, fallbacks []string) []string {
	configured = strings.TrimSpace(configured)
	out := make([]string, 0, len(fallbacks)+1)
	seen := make(map[string]bool, len(fallbacks)+1)
	if configured != "" {
		out = append(out, configured)
		seen[configured] = true
	}
	for _, m := range fallbacks {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// Query tries each candidate model in turn. Only "model not found" failures move
// on to the next model; anything else is returned straight away.
func (p *Provider) Query(ctx context.Context, prompt string) (*common.AIResponse, error) {
	var lastErr error
	for _, model := range p.models {
		resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err == nil {
			return p.toResponse(model, resp), nil
		}

		lastErr = err
		if !IsModelNotFound(err) {
			slog.Error("[GeminiProvider] API error", "model", model, "error", err)
			return nil, err
		}
		slog.Warn("[GeminiProvider] Model unavailable, trying next", "model", model)
	}

	if lastErr == nil {
		lastErr = errors.New("no Gemini models configured")
	}
	slog.Error("[GeminiProvider] Model resolution failed", "models", p.models, "error", lastErr)
	return nil, lastErr
}

func (p *Provider) toResponse(model string, resp *genai.GenerateContentResponse) *common.AIResponse {
	out := &common.AIResponse{Model: model}
	if resp == nil {
		return out
	}
	out.Response = resp.Text()
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	out.Cost = p.costService.CalculateCost(string(common.ProviderGemini), model, out.InputTokens, out.OutputTokens)
	return out
}

// IsModelNotFound reports whether err means the model does not exist for this key.
func IsModelNotFound(err error) bool {
	if err == nil {
		return false
	}
	status := 0
	message := err.Error()

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		status, message = apiErr.Code, apiErr.Message
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		status, message = apiErrPtr.Code, apiErrPtr.Message
	}

	message = strings.ToLower(message)
	return status == 404 ||
		strings.Contains(message, "is not found") ||
		(strings.Contains(message, "model") && strings.Contains(message, "not supported"))
}
