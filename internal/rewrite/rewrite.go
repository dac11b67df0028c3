// Package rewrite turns a natural-language instruction into new page markup
// using an LLM.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ziadkadry99/themestudio/internal/llm"
)

var (
	// ErrNoProvider is returned by Unconfigured.
	ErrNoProvider = errors.New("rewrite: no AI provider configured")
	// ErrTruncated is returned when the model ran out of output tokens before
	// finishing the page.
	ErrTruncated = errors.New("rewrite: answer cut off at the token limit")
)

// Rewriter produces replacement markup for a page.
type Rewriter interface {
	// Rewrite returns new markup for current. On failure it returns current
	// unchanged together with the error.
	Rewrite(ctx context.Context, current, instruction, elementContext string) (string, error)
}

// Options tune the completion request.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Usage records the cost of one rewrite.
type Usage struct {
	Model        string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
	Cost         float64
}

// Service is a Rewriter backed by an llm.Provider.
type Service struct {
	provider llm.Provider
	opts     Options
	observe  func(Usage, error)
}

// NewService creates a rewrite service.
func NewService(provider llm.Provider, opts Options) *Service {
	return &Service{provider: provider, opts: opts}
}

// OnComplete registers a callback invoked after every provider call.
func (s *Service) OnComplete(fn func(Usage, error)) {
	s.observe = fn
}

// Rewrite asks the model to apply instruction to current. Markdown fences
// around the answer are removed. An empty answer echoes current; an error
// returns current together with the error.
func (s *Service) Rewrite(ctx context.Context, current, instruction, elementContext string) (string, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model: s.opts.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: buildPrompt(current, instruction, elementContext)},
		},
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})

	usage := Usage{Duration: time.Since(start), Model: s.opts.Model}
	if resp != nil {
		usage.Model = resp.Model
		usage.InputTokens = resp.InputTokens
		usage.OutputTokens = resp.OutputTokens
		usage.Cost = resp.Cost()
	}
	if s.observe != nil {
		s.observe(usage, err)
	}
	if err != nil {
		log.Printf("rewrite: %s: %v", s.provider.Name(), err)
		return current, fmt.Errorf("rewriting with %s: %w", s.provider.Name(), err)
	}

	if resp.Truncated() {
		log.Printf("rewrite: %s stopped after %d output tokens, keeping the current page", s.provider.Name(), resp.OutputTokens)
		return current, ErrTruncated
	}

	out := stripFences(resp.Content)
	if out == "" {
		log.Printf("rewrite: %s returned an empty answer, keeping the current page", s.provider.Name())
		return current, nil
	}
	return out, nil
}

// Unconfigured is the Rewriter used when no provider is set up. Every call
// fails with ErrNoProvider and echoes current.
type Unconfigured struct{}

func (Unconfigured) Rewrite(_ context.Context, current, _, _ string) (string, error) {
	return current, ErrNoProvider
}
