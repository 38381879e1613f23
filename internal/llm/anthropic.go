package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sqlscout/sqlscout/internal/config"
)

type anthropicClient struct {
	client      anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
}

func newAnthropicClient(cfg config.AIConfig) *anthropicClient {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &anthropicClient{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       anthropic.Model(cfg.Model),
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

func (c *anthropicClient) GenerateSQL(ctx context.Context, req GenerateRequest) (string, error) {
	text, err := c.complete(ctx, sqlSystemPrompt, generateUserPrompt(req))
	if err != nil {
		return "", err
	}
	sqlText := stripSQL(text)
	if sqlText == "" {
		return "", fmt.Errorf("model returned empty SQL")
	}
	return sqlText, nil
}

func (c *anthropicClient) RefineSQL(ctx context.Context, req RefineRequest) (string, error) {
	text, err := c.complete(ctx, sqlSystemPrompt, refineUserPrompt(req))
	if err != nil {
		return "", err
	}
	sqlText := stripSQL(text)
	if sqlText == "" {
		return "", fmt.Errorf("model returned empty SQL")
	}
	return sqlText, nil
}

func (c *anthropicClient) SynthesizeAnswer(ctx context.Context, req AnswerRequest) (string, error) {
	return c.complete(ctx, answerSystemPrompt, answerUserPrompt(req))
}

func (c *anthropicClient) complete(ctx context.Context, system, user string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}
