package config

// QualityTier trades rewrite speed and cost against quality.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderGoogle     ProviderType = "google"
	ProviderOllama     ProviderType = "ollama"
)

// Config is the top-level themestudio configuration, corresponding to
// .themestudio.yml.
type Config struct {
	Provider ProviderType  `yaml:"provider" koanf:"provider"`
	Model    string        `yaml:"model" koanf:"model"`
	BaseURL  string        `yaml:"base_url,omitempty" koanf:"base_url"`
	Quality  QualityTier   `yaml:"quality" koanf:"quality"`
	DataDir  string        `yaml:"data_dir" koanf:"data_dir"`
	Server   ServerConfig  `yaml:"server" koanf:"server"`
	Rewrite  RewriteConfig `yaml:"rewrite" koanf:"rewrite"`
	Import   ImportConfig  `yaml:"import" koanf:"import"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// RewriteConfig tunes AI rewrite requests.
type RewriteConfig struct {
	MaxTokens         int     `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature       float64 `yaml:"temperature" koanf:"temperature"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	RequestsPerMinute int     `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// ImportConfig holds the default glob patterns for `themestudio import`.
type ImportConfig struct {
	Include []string `yaml:"include" koanf:"include"`
	Exclude []string `yaml:"exclude" koanf:"exclude"`
}
