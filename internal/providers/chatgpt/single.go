package chatgpt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"

	"github.com/AI-Template-SDK/visibility-workflows/internal/providers/common"
)

// Query sends prompt as a single user message and returns the first choice.
func (p *Provider) Query(ctx context.Context, prompt string) (*common.AIResponse, error) {
	if p.opts.APIKey == "" && p.opts.MissingKeyMessage != "" {
		return nil, errors.New(p.opts.MissingKeyMessage)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.opts.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if p.opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(p.opts.MaxTokens)
	}
	if p.opts.Temperature != nil {
		params.Temperature = openai.Float(*p.opts.Temperature)
	}

	slog.Debug("[ChatGPTProvider] Sending chat completion", "provider", p.opts.ID, "model", p.opts.Model)

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion failed: %w", p.opts.ID, err)
	}

	text := ""
	if len(completion.Choices) > 0 {
		text = completion.Choices[0].Message.Content
	}

	model := completion.Model
	if model == "" {
		model = p.opts.Model
	}
	in := int(completion.Usage.PromptTokens)
	out := int(completion.Usage.CompletionTokens)

	return &common.AIResponse{
		Response:     text,
		Model:        model,
		InputTokens:  in,
		OutputTokens: out,
		Cost:         p.costService.CalculateCost(string(p.opts.ID), model, in, out),
	}, nil
}
