package llm

import (
	"fmt"
	"os"
)

// Config selects and configures a provider.
type Config struct {
	// Provider is one of "openai", "openrouter", "google" or "ollama".
	Provider string
	Model    string
	// BaseURL overrides the provider's default endpoint.
	BaseURL string
	// APIKey overrides the key read from the provider's environment variable.
	APIKey string
}

// apiKeyEnv names the environment variable holding each provider's key.
var apiKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"google":     "GOOGLE_API_KEY",
}

// NewProvider creates the provider described by cfg.
func NewProvider(cfg Config) (Provider, error) {
	key := cfg.APIKey
	if env, ok := apiKeyEnv[cfg.Provider]; ok && key == "" {
		key = os.Getenv(env)
		if key == "" {
			return nil, fmt.Errorf("%s environment variable is not set", env)
		}
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(key, cfg.Model, cfg.BaseURL), nil
	case "openrouter":
		if cfg.BaseURL != "" {
			return newChatCompletionsProvider("openrouter", key, cfg.Model, cfg.BaseURL), nil
		}
		return NewOpenRouterProvider(key, cfg.Model), nil
	case "google":
		return NewGoogleProvider(key, cfg.Model, cfg.BaseURL), nil
	case "ollama":
		host := cfg.BaseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		return NewOllamaProvider(host, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}
}

// Providers lists the supported provider names.
func Providers() []string {
	return []string{"google", "openai", "openrouter", "ollama"}
}
