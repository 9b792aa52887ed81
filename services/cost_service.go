// services/cost_service.go
package services

import "strings"

type costService struct{}

func NewCostService() CostService {
	return &costService{}
}

// Cost per 1M tokens
var costPerToken = map[string]struct{ input, output float64 }{
	"gpt-4o-mini":              {input: 0.15, output: 0.60},
	"gpt-4o":                   {input: 2.50, output: 10.00},
	"gpt-4.1":                  {input: 3.00, output: 12.00},
	"gpt-4.1-mini":             {input: 0.80, output: 3.20},
	"gemini-2.0-flash":         {input: 0.10, output: 0.40},
	"gemini-1.5-flash":         {input: 0.075, output: 0.30},
	"gemini-1.5-flash-8b":      {input: 0.0375, output: 0.15},
	"gemini-1.5-pro":           {input: 1.25, output: 5.00},
	"claude-3-5-haiku-latest":  {input: 0.80, output: 4.00},
	"claude-sonnet-4-20250514": {input: 3.00, output: 15.00},
	"sonar":                    {input: 1.00, output: 1.00}, // Perplexity Sonar pricing (estimated)
}

// Model used for pricing when the reported model is not in the table
var defaultModelByProvider = map[string]string{
	"openai":     "gpt-4o-mini",
	"gemini":     "gemini-2.0-flash",
	"anthropic":  "claude-3-5-haiku-latest",
	"perplexity": "sonar",
}

func (s *costService) CalculateCost(provider string, model string, inputTokens int, outputTokens int) float64 {
	modelCosts, exists := costPerToken[model]
	if !exists {
		modelCosts = costPerToken[defaultModelByProvider[s.getProviderKey(provider)]]
	}

	inputCost := (float64(inputTokens) / 1_000_000.0) * modelCosts.input
	outputCost := (float64(outputTokens) / 1_000_000.0) * modelCosts.output
	return inputCost + outputCost
}

func (s *costService) getProviderKey(provider string) string {
	provider = strings.ToLower(provider)
	if strings.Contains(provider, "openai") || strings.Contains(provider, "gpt") || strings.Contains(provider, "chatgpt") {
		return "openai"
	}
	if strings.Contains(provider, "anthropic") || strings.Contains(provider, "claude") {
		return "anthropic"
	}
	if strings.Contains(provider, "perplexity") || strings.Contains(provider, "sonar") {
		return "perplexity"
	}
	if strings.Contains(provider, "gemini") || strings.Contains(provider, "google") {
		return "gemini"
	}
	return "openai" // default
}
