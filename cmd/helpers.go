package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ziadkadry99/themestudio/internal/auth"
	"github.com/ziadkadry99/themestudio/internal/config"
	"github.com/ziadkadry99/themestudio/internal/db"
	"github.com/ziadkadry99/themestudio/internal/identity"
	"github.com/ziadkadry99/themestudio/internal/llm"
	"github.com/ziadkadry99/themestudio/internal/rewrite"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `themestudio init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openDatabase opens the sqlite database under the configured data dir.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return database, nil
}

// createRewriterFromConfig builds the AI rewrite service. When the provider
// cannot be created (usually a missing API key) it returns nil and the
// reason, and callers run with AI edits disabled.
func createRewriterFromConfig(cfg *config.Config) (rewrite.Rewriter, error) {
	provider, err := llm.NewProvider(llm.Config{
		Provider: string(cfg.Provider),
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
		APIKey:   auth.GetAPIKey(string(cfg.Provider)),
	})
	if err != nil {
		return nil, err
	}
	if cfg.Rewrite.RequestsPerMinute > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.Rewrite.RequestsPerMinute)
	}

	svc := rewrite.NewService(provider, rewrite.Options{
		Model:       cfg.Model,
		MaxTokens:   cfg.Rewrite.MaxTokens,
		Temperature: cfg.Rewrite.Temperature,
		Timeout:     time.Duration(cfg.Rewrite.TimeoutSeconds) * time.Second,
	})
	if verbose {
		svc.OnComplete(func(u rewrite.Usage, err error) {
			if err != nil {
				return
			}
			log.Printf("rewrite: %s %d in / %d out tokens in %s ($%.4f)",
				u.Model, u.InputTokens, u.OutputTokens, u.Duration.Round(time.Millisecond), u.Cost)
		})
	}
	return svc, nil
}

// lookupUser finds a user by email.
func lookupUser(ctx context.Context, users *identity.Store, email string) (*identity.User, error) {
	u, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("looking up user %s: %w", email, err)
	}
	return u, nil
}
