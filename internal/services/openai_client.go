package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"mealmind/internal/logger"
	"mealmind/pkg/mealtypes"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient implements the TextGenerator interface for OpenAI's API.
// It provides lazy initialization of the OpenAI client and handles
// all OpenAI-specific communication logic.
type OpenAIClient struct {
	apiKey         string
	model          string
	client         *openai.Client
	debugTransport http.RoundTripper
}

// NewOpenAIClient creates a new OpenAI client with lazy initialization.
// The actual OpenAI client is created only when the first request is made.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey: apiKey,
		model:  defaultOpenAIModel,
	}
}

// Name implements mealtypes.Service.
func (c *OpenAIClient) Name() string { return "openai-client" }

// Initialize implements mealtypes.Service. The underlying client stays lazy.
func (c *OpenAIClient) Initialize() error { return nil }

// ProviderName returns the provider name for this client.
func (c *OpenAIClient) ProviderName() string {
	return "openai"
}

// IsConfigured returns true if the client has a valid API key.
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// SetDebugTransport sets the HTTP transport for network debugging.
func (c *OpenAIClient) SetDebugTransport(transport http.RoundTripper) {
	c.debugTransport = transport
	c.client = nil
}

func (c *OpenAIClient) initializeClientIfNeeded() error {
	if c.client != nil {
		return nil
	}

	if c.apiKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}

	var options []option.RequestOption
	options = append(options, option.WithAPIKey(c.apiKey))

	if c.debugTransport != nil {
		httpClient := &http.Client{Transport: c.debugTransport}
		options = append(options, option.WithHTTPClient(httpClient))
		logger.Debug("OpenAI client initialized with debug transport", "provider", "openai")
	} else {
		logger.Debug("OpenAI client initialized", "provider", "openai")
	}

	client := openai.NewClient(options...)
	c.client = &client

	return nil
}

// Generate sends the conversation to OpenAI and returns the assistant reply.
func (c *OpenAIClient) Generate(ctx context.Context, messages []mealtypes.Message) (string, error) {
	logger.Debug("OpenAI Generate starting", "model", c.model, "message_count", len(messages))

	if err := c.initializeClientIfNeeded(); err != nil {
		return "", fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: convertMessagesToOpenAI(messages),
	}

	return withRetry(ctx, func() (string, error) {
		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			logger.Error("OpenAI request failed", "error", err)
			return "", fmt.Errorf("openai request failed: %w", err)
		}

		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("no response choices returned")
		}

		content := completion.Choices[0].Message.Content
		if content == "" {
			return "", fmt.Errorf("empty response content")
		}

		logger.Debug("OpenAI response received", "content_length", len(content))
		return content, nil
	})
}

// convertMessagesToOpenAI maps conversation messages onto the OpenAI
// parameter union. Unknown roles are skipped.
func convertMessagesToOpenAI(messages []mealtypes.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "user":
			out = append(out, openai.UserMessage(msg.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(msg.Content))
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		default:
			continue
		}
	}
	return out
}
