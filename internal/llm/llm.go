// Package llm wraps the external text-generation capability behind a small
// three-operation client: initial SQL generation, error-conditioned SQL
// refinement, and natural-language answer synthesis. None of the operations
// validates its output and none retries internally; both responsibilities
// belong to the caller.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlscout/sqlscout/internal/config"
)

type GenerateRequest struct {
	Dialect       string
	SchemaSummary string
	Question      string
}

type RefineRequest struct {
	Dialect       string
	SchemaSummary string
	Question      string
	PreviousSQL   string
	ErrorMessage  string
}

type AnswerRequest struct {
	Question    string
	SQL         string
	ResultsText string
}

type Client interface {
	GenerateSQL(ctx context.Context, req GenerateRequest) (string, error)
	RefineSQL(ctx context.Context, req RefineRequest) (string, error)
	SynthesizeAnswer(ctx context.Context, req AnswerRequest) (string, error)
}

// New builds the configured provider client.
func New(cfg config.AIConfig) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	case config.ProviderOpenAI:
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// stripSQL removes markdown fences the model occasionally emits despite the
// prompt, and trims whitespace.
func stripSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
