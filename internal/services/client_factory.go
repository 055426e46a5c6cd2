package services

import (
	"fmt"
	"strings"

	"mealmind/internal/logger"
	"mealmind/pkg/mealtypes"
)

// ClientFactory creates provider clients keyed by provider name. Clients are
// cached so repeated lookups reuse the same lazily initialized instance.
type ClientFactory struct {
	apiKeys map[string]string
	clients map[string]mealtypes.TextGenerator
}

// NewClientFactory creates a factory over the given provider API keys. Keys
// the map lacks produce unconfigured clients that fail on first use.
func NewClientFactory(apiKeys map[string]string) *ClientFactory {
	if apiKeys == nil {
		apiKeys = make(map[string]string)
	}
	return &ClientFactory{
		apiKeys: apiKeys,
		clients: make(map[string]mealtypes.TextGenerator),
	}
}

// Name implements mealtypes.Service.
func (f *ClientFactory) Name() string { return "client-factory" }

// Initialize implements mealtypes.Service.
func (f *ClientFactory) Initialize() error { return nil }

// GetClient returns the text generator for the named provider, creating it on
// first request.
func (f *ClientFactory) GetClient(provider string) (mealtypes.TextGenerator, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if client, ok := f.clients[provider]; ok {
		return client, nil
	}

	var client mealtypes.TextGenerator
	switch provider {
	case "openai":
		client = NewOpenAIClient(f.apiKeys["openai"])
	case "anthropic":
		client = NewAnthropicClient(f.apiKeys["anthropic"])
	case "gemini":
		client = NewGeminiClient(f.apiKeys["gemini"])
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	f.clients[provider] = client
	logger.Debug("Provider client created", "provider", provider)
	return client, nil
}

// GetConfiguredClient returns the named provider when it has an API key, and
// otherwise falls back to the first configured provider in a fixed order.
func (f *ClientFactory) GetConfiguredClient(preferred string) (mealtypes.TextGenerator, error) {
	if preferred != "" {
		client, err := f.GetClient(preferred)
		if err != nil {
			return nil, err
		}
		if client.IsConfigured() {
			return client, nil
		}
		logger.Warn("Preferred provider not configured, falling back", "provider", preferred)
	}

	for _, provider := range []string{"openai", "anthropic", "gemini"} {
		client, err := f.GetClient(provider)
		if err != nil {
			continue
		}
		if client.IsConfigured() {
			return client, nil
		}
	}

	return nil, fmt.Errorf("no LLM provider configured: %w", mealtypes.ErrCollaboratorUnavailable)
}
