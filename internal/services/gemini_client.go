package services

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"mealmind/internal/logger"
	"mealmind/pkg/mealtypes"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient implements the TextGenerator interface for Google Gemini API.
// It provides lazy initialization of the Gemini client and handles
// all Gemini-specific communication logic.
type GeminiClient struct {
	apiKey         string
	model          string
	client         *genai.Client
	debugTransport http.RoundTripper
}

// NewGeminiClient creates a new Gemini client with lazy initialization.
// The actual Gemini client is created only when the first request is made.
func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		apiKey: apiKey,
		model:  defaultGeminiModel,
	}
}

// Name implements mealtypes.Service.
func (c *GeminiClient) Name() string { return "gemini-client" }

// Initialize implements mealtypes.Service. The underlying client stays lazy.
func (c *GeminiClient) Initialize() error { return nil }

// ProviderName returns the provider name for this client.
func (c *GeminiClient) ProviderName() string {
	return "gemini"
}

// IsConfigured returns true if the client has a valid API key.
func (c *GeminiClient) IsConfigured() bool {
	return c.apiKey != ""
}

func (c *GeminiClient) initializeClientIfNeeded(ctx context.Context) error {
	if c.client != nil {
		return nil
	}

	if c.apiKey == "" {
		return fmt.Errorf("google API key not configured")
	}

	clientConfig := &genai.ClientConfig{
		APIKey: c.apiKey,
	}
	if c.debugTransport != nil {
		clientConfig.HTTPClient = &http.Client{Transport: c.debugTransport}
		logger.Debug("Gemini client initialized with debug transport", "provider", "gemini")
	} else {
		logger.Debug("Gemini client initialized", "provider", "gemini")
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c.client = client
	return nil
}

// Generate sends the conversation to Gemini and returns the model reply.
func (c *GeminiClient) Generate(ctx context.Context, messages []mealtypes.Message) (string, error) {
	logger.Debug("Gemini Generate starting", "model", c.model, "message_count", len(messages))

	if err := c.initializeClientIfNeeded(ctx); err != nil {
		return "", fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	contents, config := convertMessagesToGemini(messages)

	return withRetry(ctx, func() (string, error) {
		result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
		if err != nil {
			logger.Error("Gemini request failed", "error", err)
			return "", fmt.Errorf("gemini request failed: %w", err)
		}

		content := extractGeminiText(result)
		if content == "" {
			return "", fmt.Errorf("empty response content")
		}

		logger.Debug("Gemini response received", "content_length", len(content))
		return content, nil
	})
}

// convertMessagesToGemini maps conversation messages onto genai contents.
// Gemini uses "model" for the assistant role and carries system text
// separately via SystemInstruction.
func convertMessagesToGemini(messages []mealtypes.Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(messages))
	config := &genai.GenerateContentConfig{}
	var systemPrompt string

	for _, msg := range messages {
		var role string
		switch msg.Role {
		case "user":
			role = "user"
		case "assistant":
			role = "model"
		case "system":
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
			continue
		default:
			continue
		}
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: msg.Content}},
			Role:  role,
		})
	}

	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if len(contents) == 0 {
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: ""}},
			Role:  "user",
		})
	}

	return contents, config
}

func extractGeminiText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	var content string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Thought {
				continue
			}
			content += part.Text
		}
	}
	return content
}
