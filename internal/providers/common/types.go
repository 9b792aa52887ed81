package common

// ProviderID names the vendor behind a platform. It prefixes classified error
// messages ("GEMINI rate limit, status 429: ...").
// Defined here to avoid import cycles
type ProviderID string

const (
	ProviderOpenAI     ProviderID = "openai"
	ProviderGemini     ProviderID = "gemini"
	ProviderPerplexity ProviderID = "perplexity"
	ProviderAnthropic  ProviderID = "anthropic"
)

// AIResponse contains the response from an AI provider
// Defined here to avoid import cycles
type AIResponse struct {
	Response     string
	Model        string
	InputTokens  int
	OutputTokens int
	Cost         float64
}

// CostCalculator prices a response. services.CostService satisfies it.
type CostCalculator interface {
	CalculateCost(provider string, model string, inputTokens int, outputTokens int) float64
}

// NoCost is used when a provider is built without a cost calculator.
type NoCost struct{}

func (NoCost) CalculateCost(string, string, int, int) float64 { return 0 }
