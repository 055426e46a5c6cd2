package services

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"mealmind/internal/logger"
	"mealmind/pkg/mealtypes"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicClient implements the TextGenerator interface for Anthropic's API.
// It provides lazy initialization of the Anthropic client and handles
// all Anthropic-specific communication logic.
type AnthropicClient struct {
	apiKey string
	model  string
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client with lazy initialization.
// The actual Anthropic client is created only when the first request is made.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{
		apiKey: apiKey,
		model:  defaultAnthropicModel,
	}
}

// Name implements mealtypes.Service.
func (c *AnthropicClient) Name() string { return "anthropic-client" }

// Initialize implements mealtypes.Service. The underlying client stays lazy.
func (c *AnthropicClient) Initialize() error { return nil }

// ProviderName returns the provider name for this client.
func (c *AnthropicClient) ProviderName() string {
	return "anthropic"
}

// IsConfigured returns true if the client has a valid API key.
func (c *AnthropicClient) IsConfigured() bool {
	return c.apiKey != ""
}

func (c *AnthropicClient) initializeClientIfNeeded() error {
	if c.client != nil {
		return nil
	}

	if c.apiKey == "" {
		return fmt.Errorf("anthropic API key not configured")
	}

	client := anthropic.NewClient(option.WithAPIKey(c.apiKey))
	c.client = &client

	logger.Debug("Anthropic client initialized", "provider", "anthropic")
	return nil
}

// Generate sends the conversation to Anthropic and returns the assistant reply.
func (c *AnthropicClient) Generate(ctx context.Context, messages []mealtypes.Message) (string, error) {
	logger.Debug("Anthropic Generate starting", "model", c.model, "message_count", len(messages))

	if err := c.initializeClientIfNeeded(); err != nil {
		return "", fmt.Errorf("failed to initialize Anthropic client: %w", err)
	}

	converted, systemPrompt := convertMessagesToAnthropic(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		Messages:  converted,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	return withRetry(ctx, func() (string, error) {
		message, err := c.client.Messages.New(ctx, params)
		if err != nil {
			logger.Error("Anthropic request failed", "error", err)
			return "", fmt.Errorf("anthropic request failed: %w", err)
		}

		if len(message.Content) == 0 {
			return "", fmt.Errorf("no response content returned")
		}

		var content string
		for _, block := range message.Content {
			content += block.Text
		}
		if content == "" {
			return "", fmt.Errorf("empty response content")
		}

		logger.Debug("Anthropic response received", "content_length", len(content))
		return content, nil
	})
}

// convertMessagesToAnthropic maps conversation messages onto the Anthropic
// request format. System messages are pulled out and combined into one
// system prompt, since the Messages API carries them separately.
func convertMessagesToAnthropic(messages []mealtypes.Message) ([]anthropic.MessageParam, string) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case "user":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case "system":
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
		default:
			continue
		}
	}

	return out, systemPrompt
}
