// Package config loads runtime configuration from .env files and the
// process environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"mealmind/internal/logger"
)

// Config carries everything the application needs to start.
type Config struct {
	// Provider selects the primary LLM backend: openai, anthropic, or gemini.
	Provider string

	// APIKeys maps a provider name to its key. Missing keys leave that
	// provider unconfigured.
	APIKeys map[string]string

	// PerplexityKey enables live recipe search when set.
	PerplexityKey string

	// DBPath is the SQLite user database location. Empty means in-memory
	// user storage only.
	DBPath string

	SessionTimeout time.Duration
	SweepInterval  time.Duration
}

// Load reads configuration from an optional .env file and the environment.
// Values already present in the environment win over the file.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded configuration from .env")
	}

	cfg := &Config{
		Provider: strings.ToLower(os.Getenv("MEALMIND_PROVIDER")),
		APIKeys: map[string]string{
			"openai":    os.Getenv("OPENAI_API_KEY"),
			"anthropic": os.Getenv("ANTHROPIC_API_KEY"),
			"gemini":    os.Getenv("GEMINI_API_KEY"),
		},
		PerplexityKey:  os.Getenv("PERPLEXITY_API_KEY"),
		DBPath:         os.Getenv("MEALMIND_DB_PATH"),
		SessionTimeout: durationEnv("MEALMIND_SESSION_TIMEOUT", time.Hour),
		SweepInterval:  durationEnv("MEALMIND_SWEEP_INTERVAL", 5*time.Minute),
	}
	return cfg
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logger.Warn("Invalid duration, using default", "key", key, "value", raw)
		return fallback
	}
	return d
}
