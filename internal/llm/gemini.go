package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/tabula-labs/tabula/internal/errors"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// GeminiGenerator implements Generator using the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	retry  RetryConfig
}

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the model name. Default: DefaultModel.
	Model string

	// Retry configures retries for transient API failures.
	Retry RetryConfig
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewModelUnavailable("no API key configured", nil)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, errors.NewModelUnavailable("failed to create Gemini client", err)
	}

	return &GeminiGenerator{
		client: client,
		model:  cfg.Model,
		retry:  cfg.Retry,
	}, nil
}

// Name returns the generator name.
func (g *GeminiGenerator) Name() string { return "gemini" }

// Model returns the configured model name.
func (g *GeminiGenerator) Model() string { return g.model }

// generate sends a prompt and returns the raw response text, retrying
// transient failures.
func (g *GeminiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	var text string
	result := CallWithRetry(ctx, g.retry, func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			return fmt.Errorf("gemini generate: %w", err)
		}
		text = resp.Text()
		if text == "" {
			return fmt.Errorf("gemini generate: empty response")
		}
		return nil
	})
	if !result.Success {
		return "", errors.NewModelUnavailable(result.String(), result.LastError)
	}
	return text, nil
}

// GenerateAnalysis produces the SQL/pandas pair for a question.
func (g *GeminiGenerator) GenerateAnalysis(ctx context.Context, schema, table, question string) (*Analysis, error) {
	prompt, err := AnalysisPrompt(schema, table, question)
	if err != nil {
		return nil, err
	}
	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseAnalysis(raw)
}

// SuggestQuestions proposes questions for a freshly uploaded dataset.
// Model failures degrade to the static fallback rather than erroring:
// suggestions are decoration, not a required step.
func (g *GeminiGenerator) SuggestQuestions(ctx context.Context, schema string) ([]string, error) {
	prompt, err := SuggestPrompt(schema)
	if err != nil {
		return FallbackSuggestions(), nil
	}
	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return FallbackSuggestions(), nil
	}
	questions, err := ParseQuestionList(raw)
	if err != nil {
		return FallbackSuggestions(), nil
	}
	return questions, nil
}
