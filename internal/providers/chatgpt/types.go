package chatgpt

import "github.com/AI-Template-SDK/visibility-workflows/internal/providers/common"

// Options describes one OpenAI-compatible chat completion endpoint.
type Options struct {
	ID      common.ProviderID
	APIKey  string
	BaseURL string
	Model   string

	// MaxTokens caps the completion length; zero leaves it to the endpoint.
	MaxTokens int64
	// Temperature is only sent when set.
	Temperature *float64
	// MissingKeyMessage is returned instead of calling out when APIKey is empty.
	MissingKeyMessage string
}

const (
	defaultChatGPTModel    = "gpt-4o-mini"
	defaultPerplexityModel = "sonar"
	defaultPerplexityURL   = "https://api.perplexity.ai"
)
