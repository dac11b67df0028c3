package config

// qualityPresets maps each provider+quality combination to a model.
var qualityPresets = map[ProviderType]map[QualityTier]string{
	ProviderOpenAI: {
		QualityLite:   "gpt-4o-mini",
		QualityNormal: "gpt-4o",
		QualityMax:    "gpt-4.1",
	},
	ProviderOpenRouter: {
		QualityLite:   "google/gemini-2.5-flash",
		QualityNormal: "openai/gpt-4o",
		QualityMax:    "openai/gpt-4.1",
	},
	ProviderGoogle: {
		QualityLite:   "gemini-2.5-flash",
		QualityNormal: "gemini-2.5-flash",
		QualityMax:    "gemini-2.5-pro",
	},
	ProviderOllama: {
		QualityLite:   "llama3",
		QualityNormal: "llama3",
		QualityMax:    "llama3:70b",
	},
}

// DefaultPort is the default HTTP port.
const DefaultPort = 8080

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGoogle,
		Model:    "gemini-2.5-flash",
		Quality:  QualityNormal,
		DataDir:  ".themestudio",
		Server: ServerConfig{
			Port: DefaultPort,
		},
		Rewrite: RewriteConfig{
			MaxTokens:         16384,
			Temperature:       0.2,
			TimeoutSeconds:    120,
			RequestsPerMinute: 30,
		},
		Import: ImportConfig{
			Include: []string{"**/*.html", "**/*.htm"},
		},
	}
}

// GetPreset returns the model for the given provider and tier, falling back
// to the normal tier of the default provider.
func GetPreset(provider ProviderType, tier QualityTier) string {
	if tiers, ok := qualityPresets[provider]; ok {
		if model, ok := tiers[tier]; ok {
			return model
		}
	}
	return qualityPresets[ProviderGoogle][QualityNormal]
}
