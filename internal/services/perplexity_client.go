package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"mealmind/internal/logger"
	"mealmind/pkg/mealtypes"
)

const (
	perplexityBaseURL      = "https://api.perplexity.ai"
	defaultPerplexityModel = "sonar"
)

var _ mealtypes.RecipeSearch = (*PerplexityClient)(nil)

// PerplexityClient implements recipe search over Perplexity's
// OpenAI-compatible API. Search is best effort: any failure is reported in
// the returned text so the meal flow keeps working without live results.
type PerplexityClient struct {
	apiKey string
	model  string
	client *openai.Client
}

// NewPerplexityClient creates a new Perplexity client with lazy initialization.
func NewPerplexityClient(apiKey string) *PerplexityClient {
	return &PerplexityClient{
		apiKey: apiKey,
		model:  defaultPerplexityModel,
	}
}

// Name implements mealtypes.Service.
func (c *PerplexityClient) Name() string { return "perplexity-client" }

// Initialize implements mealtypes.Service. The underlying client stays lazy.
func (c *PerplexityClient) Initialize() error { return nil }

// ProviderName returns the provider name for this client.
func (c *PerplexityClient) ProviderName() string {
	return "perplexity"
}

// IsConfigured returns true if the client has a valid API key.
func (c *PerplexityClient) IsConfigured() bool {
	return c.apiKey != ""
}

func (c *PerplexityClient) initializeClientIfNeeded() error {
	if c.client != nil {
		return nil
	}

	if c.apiKey == "" {
		return fmt.Errorf("perplexity API key not configured")
	}

	client := openai.NewClient(
		option.WithAPIKey(c.apiKey),
		option.WithBaseURL(perplexityBaseURL),
	)
	c.client = &client

	logger.Debug("Perplexity client initialized", "provider", "perplexity")
	return nil
}

// buildRecipeQuery formats a recipe search request, optionally scoped to a
// cuisine.
func buildRecipeQuery(query, cuisine string) string {
	query = strings.TrimSpace(query)
	if cuisine = strings.TrimSpace(cuisine); cuisine != "" {
		return fmt.Sprintf("Find detailed recipes for %s in %s cuisine. Include ingredients, preparation time, and nutritional information.", query, cuisine)
	}
	return fmt.Sprintf("Find detailed recipes for %s. Include ingredients, preparation time, and nutritional information.", query)
}

// Search looks up recipes matching the query. Failures never surface as
// errors; the returned string describes them instead.
func (c *PerplexityClient) Search(ctx context.Context, query, cuisine string) string {
	if err := c.initializeClientIfNeeded(); err != nil {
		logger.Warn("Recipe search unavailable", "error", err)
		return fmt.Sprintf("Recipe search unavailable: %v", err)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(buildRecipeQuery(query, cuisine)),
		},
	}

	content, err := withRetry(ctx, func() (string, error) {
		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("perplexity request failed: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("no response choices returned")
		}
		return completion.Choices[0].Message.Content, nil
	})
	if err != nil {
		logger.Warn("Recipe search failed", "error", err, "query", query)
		return fmt.Sprintf("Recipe search failed: %v", err)
	}

	logger.Debug("Recipe search completed", "query", query, "content_length", len(content))
	return content
}
