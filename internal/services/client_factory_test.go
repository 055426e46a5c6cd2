package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientKnownProviders(t *testing.T) {
	f := NewClientFactory(map[string]string{
		"openai":    "sk-test",
		"anthropic": "ak-test",
		"gemini":    "gk-test",
	})

	for _, provider := range []string{"openai", "anthropic", "gemini"} {
		client, err := f.GetClient(provider)
		require.NoError(t, err, provider)
		assert.Equal(t, provider, client.ProviderName())
		assert.True(t, client.IsConfigured())
	}
}

func TestGetClientIsCached(t *testing.T) {
	f := NewClientFactory(map[string]string{"openai": "sk-test"})

	a, err := f.GetClient("openai")
	require.NoError(t, err)
	b, err := f.GetClient("OpenAI")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestGetClientUnknownProvider(t *testing.T) {
	f := NewClientFactory(nil)
	_, err := f.GetClient("cohere")
	assert.Error(t, err)
}

func TestGetClientWithoutKeyIsUnconfigured(t *testing.T) {
	f := NewClientFactory(nil)
	client, err := f.GetClient("openai")
	require.NoError(t, err)
	assert.False(t, client.IsConfigured())
}

func TestGetConfiguredClientFallsBack(t *testing.T) {
	f := NewClientFactory(map[string]string{"gemini": "gk-test"})

	client, err := f.GetConfiguredClient("openai")
	require.NoError(t, err)
	assert.Equal(t, "gemini", client.ProviderName())
}

func TestGetConfiguredClientPrefersNamedProvider(t *testing.T) {
	f := NewClientFactory(map[string]string{
		"openai":    "sk-test",
		"anthropic": "ak-test",
	})

	client, err := f.GetConfiguredClient("anthropic")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", client.ProviderName())
}

func TestGetConfiguredClientNoneConfigured(t *testing.T) {
	f := NewClientFactory(nil)
	_, err := f.GetConfiguredClient("")
	assert.Error(t, err)
}
