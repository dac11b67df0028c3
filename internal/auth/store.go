// Package auth stores LLM provider API keys outside the project config.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// APIKeyCredentials stores an API key for a provider.
type APIKeyCredentials struct {
	APIKey string `json:"api_key,omitempty"`
}

// Credentials holds stored credentials for all providers.
type Credentials struct {
	OpenAI     *APIKeyCredentials `json:"openai,omitempty"`
	OpenRouter *APIKeyCredentials `json:"openrouter,omitempty"`
	Google     *APIKeyCredentials `json:"google,omitempty"`
}

// envVars names the environment variable that takes priority for each provider.
var envVars = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"google":     "GOOGLE_API_KEY",
}

// CredentialPath returns the path to the credentials file (~/.themestudio/credentials.json).
func CredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".themestudio", "credentials.json"), nil
}

// Load reads credentials from ~/.themestudio/credentials.json.
// Returns empty credentials if the file doesn't exist.
func Load() (*Credentials, error) {
	path, err := CredentialPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Credentials{}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	return &creds, nil
}

// Save writes credentials with restricted permissions.
func Save(creds *Credentials) error {
	path, err := CredentialPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

func (c *Credentials) slot(provider string) **APIKeyCredentials {
	switch provider {
	case "openai":
		return &c.OpenAI
	case "openrouter":
		return &c.OpenRouter
	case "google":
		return &c.Google
	}
	return nil
}

// SetAPIKey stores key for provider, keeping other providers' keys.
func SetAPIKey(provider, key string) error {
	creds, err := Load()
	if err != nil {
		return err
	}
	slot := creds.slot(provider)
	if slot == nil {
		return fmt.Errorf("provider %q does not use an API key", provider)
	}
	*slot = &APIKeyCredentials{APIKey: key}
	return Save(creds)
}

// GetAPIKey returns the API key for the given provider.
// It checks the environment variable first, then falls back to stored credentials.
func GetAPIKey(provider string) string {
	if env, ok := envVars[provider]; ok {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}

	creds, err := Load()
	if err != nil {
		return ""
	}
	if slot := creds.slot(provider); slot != nil && *slot != nil {
		return (*slot).APIKey
	}
	return ""
}

// RemoveAPIKey deletes the stored key for provider, or every stored key when
// provider is empty.
func RemoveAPIKey(provider string) error {
	if provider == "" {
		return Save(&Credentials{})
	}
	creds, err := Load()
	if err != nil {
		return err
	}
	slot := creds.slot(provider)
	if slot == nil {
		return fmt.Errorf("unknown provider %q (valid: openai, openrouter, google)", provider)
	}
	*slot = nil
	return Save(creds)
}

// KeySource reports where the key for provider comes from: "env var",
// "stored" or "" when none is configured.
func KeySource(provider string) string {
	if env, ok := envVars[provider]; ok && os.Getenv(env) != "" {
		return "env var"
	}
	creds, err := Load()
	if err != nil {
		return ""
	}
	if slot := creds.slot(provider); slot != nil && *slot != nil && (*slot).APIKey != "" {
		return "stored"
	}
	return ""
}
