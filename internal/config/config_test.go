package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderGoogle {
		t.Errorf("expected default provider %q, got %q", ProviderGoogle, cfg.Provider)
	}
	if cfg.Quality != QualityNormal {
		t.Errorf("expected default quality %q, got %q", QualityNormal, cfg.Quality)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected default port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if cfg.DatabasePath() != filepath.Join(".themestudio", "themestudio.db") {
		t.Errorf("database path = %q", cfg.DatabasePath())
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	original := DefaultConfig()
	original.Provider = ProviderOpenAI
	original.Model = "gpt-4o"
	original.Quality = QualityMax
	original.Server.Port = 9090
	original.Server.AllowAllOrigins = true
	original.Rewrite.Temperature = 0.7
	original.Import.Exclude = []string{"drafts/**"}

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider || loaded.Model != original.Model || loaded.Quality != original.Quality {
		t.Errorf("llm settings: got %s/%s/%s", loaded.Provider, loaded.Model, loaded.Quality)
	}
	if loaded.Server != original.Server {
		t.Errorf("server: got %+v, want %+v", loaded.Server, original.Server)
	}
	if loaded.Rewrite != original.Rewrite {
		t.Errorf("rewrite: got %+v, want %+v", loaded.Rewrite, original.Rewrite)
	}
	if len(loaded.Import.Exclude) != 1 || loaded.Import.Exclude[0] != "drafts/**" {
		t.Errorf("import.exclude: got %v", loaded.Import.Exclude)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != ProviderGoogle {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("THEMESTUDIO_PROVIDER", "openai")
	t.Setenv("THEMESTUDIO_SERVER_PORT", "7000")
	t.Setenv("THEMESTUDIO_REWRITE_REQUESTS_PER_MINUTE", "5")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOpenAI {
		t.Errorf("provider: got %q, want %q", loaded.Provider, ProviderOpenAI)
	}
	if loaded.Server.Port != 7000 {
		t.Errorf("server.port: got %d", loaded.Server.Port)
	}
	if loaded.Rewrite.RequestsPerMinute != 5 {
		t.Errorf("rewrite.requests_per_minute: got %d", loaded.Rewrite.RequestsPerMinute)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"THEMESTUDIO_MODEL":                    "model",
		"THEMESTUDIO_DATA_DIR":                 "data_dir",
		"THEMESTUDIO_SERVER_ALLOW_ALL_ORIGINS": "server.allow_all_origins",
		"THEMESTUDIO_REWRITE_MAX_TOKENS":       "rewrite.max_tokens",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.Provider = "" }},
		{"invalid provider", func(c *Config) { c.Provider = "invalid" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"invalid quality", func(c *Config) { c.Quality = "ultra" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"negative max tokens", func(c *Config) { c.Rewrite.MaxTokens = -1 }},
		{"temperature", func(c *Config) { c.Rewrite.Temperature = 3 }},
		{"negative timeout", func(c *Config) { c.Rewrite.TimeoutSeconds = -1 }},
		{"negative rpm", func(c *Config) { c.Rewrite.RequestsPerMinute = -1 }},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig should be valid, got: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	if m := GetPreset(ProviderOpenAI, QualityLite); m != "gpt-4o-mini" {
		t.Errorf("expected gpt-4o-mini, got %q", m)
	}
	if m := GetPreset(ProviderOllama, QualityMax); m != "llama3:70b" {
		t.Errorf("expected llama3:70b, got %q", m)
	}
	if m := GetPreset("unknown", QualityLite); m != "gemini-2.5-flash" {
		t.Errorf("expected fallback to gemini-2.5-flash, got %q", m)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderOpenRouter, "OPENROUTER_API_KEY"},
		{ProviderGoogle, "GOOGLE_API_KEY"},
		{ProviderOllama, ""},
	}
	for _, tt := range tests {
		if got := APIKeyEnvVar(tt.provider); got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"**/*.html", []string{"**/*.html"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}
