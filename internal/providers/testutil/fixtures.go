package testutil

import (
	"fmt"
	"time"

	"github.com/AI-Template-SDK/visibility-workflows/internal/config"
	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
)

// SampleConfig returns a test configuration
func SampleConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Providers:   *SampleProvidersConfig(),
	}
}

// SampleProvidersConfig returns provider settings with fake keys
func SampleProvidersConfig() *config.ProvidersConfig {
	return &config.ProvidersConfig{
		OpenAIAPIKey:        "test-openai-key",
		OpenAIModel:         "gpt-4o-mini",
		GeminiAPIKey:        "test-gemini-key",
		GeminiFallbacks:     append([]string(nil), config.DefaultGeminiModels...),
		PerplexityAPIKey:    "test-perplexity-key",
		PerplexityModel:     "sonar",
		PerplexityBaseURL:   "https://api.perplexity.ai",
		AnthropicAPIKey:     "test-anthropic-key",
		AnthropicModel:      "claude-3-5-haiku-latest",
		RequestsPerSecond:   100,
		RetryMaxAttempts:    3,
		RetryBaseDelay:      time.Millisecond,
		RetryMaxDelay:       10 * time.Millisecond,
		DailyScanPlatform:   "gemini",
		DailyScanMaxQueries: 10,
	}
}

// SampleBrands returns a small CRM brand roster
func SampleBrands() []models.Brand {
	crm := "CRM"
	return []models.Brand{
		{ID: "b-hubspot", Name: "HubSpot", Category: &crm},
		{ID: "b-salesforce", Name: "Salesforce", Category: &crm},
		{ID: "b-pipedrive", Name: "Pipedrive", Category: &crm},
	}
}

// SampleQueries returns test queries
func SampleQueries() []string {
	return []string{
		"What is the best CRM for a small business?",
		"Which sales platforms integrate with Gmail?",
		"Recommend a marketing automation tool",
	}
}

// SampleChatCompletion returns an OpenAI-compatible chat completion body
func SampleChatCompletion(content string) string {
	return fmt.Sprintf(`{
		"id": "chatcmpl-123",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "sonar",
		"choices": [
			{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": %q}
			}
		],
		"usage": {"prompt_tokens": 12, "completion_tokens": 9, "total_tokens": 21}
	}`, content)
}

// SampleGeminiResponse returns a generateContent response body
func SampleGeminiResponse(text string) string {
	return fmt.Sprintf(`{
		"candidates": [
			{"content": {"role": "model", "parts": [{"text": %q}]}, "finishReason": "STOP"}
		],
		"usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 5, "totalTokenCount": 12},
		"modelVersion": "gemini-2.0-flash"
	}`, text)
}

// SampleGeminiError returns a Google API error body
func SampleGeminiError(code int, status, message string) string {
	return fmt.Sprintf(`{"error": {"code": %d, "message": %q, "status": %q}}`, code, message, status)
}

// SampleAnthropicMessage returns a Messages API response body
func SampleAnthropicMessage(text string) string {
	return fmt.Sprintf(`{
		"id": "msg_123",
		"type": "message",
		"role": "assistant",
		"model": "claude-3-5-haiku-latest",
		"content": [{"type": "text", "text": %q}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 4}
	}`, text)
}

// SampleAnthropicError returns a Messages API error body
func SampleAnthropicError(errType, message string) string {
	return fmt.Sprintf(`{"type": "error", "error": {"type": %q, "message": %q}}`, errType, message)
}
