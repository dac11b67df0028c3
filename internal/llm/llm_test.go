package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type staticProvider struct {
	calls int
}

func (s *staticProvider) Name() string { return "static" }

func (s *staticProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.calls++
	return &CompletionResponse{Content: "ok"}, nil
}

func request() CompletionRequest {
	return CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "be terse"},
			{Role: RoleUser, Content: "hello"},
		},
		Temperature: 0.2,
	}
}

func TestOpenAIProviderAgainstServer(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"<p>hi</p>"},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("test-key", "gpt-4o", server.URL+"/v1")
	resp, err := p.Complete(context.Background(), request())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "<p>hi</p>" || resp.InputTokens != 12 || resp.OutputTokens != 3 {
		t.Errorf("resp = %+v", resp)
	}
	if got["model"] != "gpt-4o" {
		t.Errorf("model sent = %v", got["model"])
	}
	if got["max_tokens"] != float64(DefaultMaxTokens) {
		t.Errorf("max_tokens sent = %v", got["max_tokens"])
	}
	if p.Name() != "openai" {
		t.Errorf("Name = %q", p.Name())
	}
}

func TestOpenAIProviderNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer server.Close()

	if _, err := NewOpenAIProvider("k", "m", server.URL).Complete(context.Background(), request()); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestGoogleProviderAgainstServer(t *testing.T) {
	var got geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gemini-2.5-flash:generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Errorf("api key header = %q", r.Header.Get("x-goog-api-key"))
		}
		if r.URL.Query().Get("key") != "" {
			t.Error("api key leaked into the query string")
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"<p>"},{"text":"hi</p>"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":7,"candidatesTokenCount":2}}`))
	}))
	defer server.Close()

	p := NewGoogleProvider("g-key", "gemini-2.5-flash", server.URL)
	resp, err := p.Complete(context.Background(), request())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "<p>hi</p>" || resp.InputTokens != 7 || resp.OutputTokens != 2 {
		t.Errorf("resp = %+v", resp)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "be terse" {
		t.Errorf("system instruction = %+v", got.SystemInstruction)
	}
	if len(got.Contents) != 1 || got.Contents[0].Role != "user" {
		t.Errorf("contents = %+v", got.Contents)
	}
}

func TestGoogleProviderAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	_, err := NewGoogleProvider("k", "m", server.URL).Complete(context.Background(), request())
	if err == nil || !strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") {
		t.Errorf("err = %v", err)
	}
}

func TestOllamaProviderAgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("stream should be off")
		}
		if len(req.Messages) != 2 {
			t.Errorf("messages = %d", len(req.Messages))
		}
		w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"<p>x</p>"},"done_reason":"stop","prompt_eval_count":5,"eval_count":1}`))
	}))
	defer server.Close()

	resp, err := NewOllamaProvider(server.URL+"/", "llama3").Complete(context.Background(), request())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "<p>x</p>" || resp.Model != "llama3" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOllamaProviderStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	_, err := NewOllamaProvider(server.URL, "nope").Complete(context.Background(), request())
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Errorf("err = %v", err)
	}
}

func TestFactoryReturnsErrorForMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	for _, p := range []string{"openai", "openrouter", "google"} {
		if _, err := NewProvider(Config{Provider: p, Model: "m"}); err == nil {
			t.Errorf("expected error for provider %q with missing API key", p)
		}
	}
}

func TestFactoryExplicitKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	p, err := NewProvider(Config{Provider: "google", Model: "gemini-2.5-flash", APIKey: "k"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "google" {
		t.Errorf("Name = %q", p.Name())
	}
}

func TestFactoryReturnsErrorForUnknownProvider(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "unknown"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestFactoryOllamaHost(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	p, err := NewProvider(Config{Provider: "ollama", Model: "llama3"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.(*OllamaProvider).baseURL != DefaultOllamaHost {
		t.Errorf("baseURL = %q", p.(*OllamaProvider).baseURL)
	}

	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	p, _ = NewProvider(Config{Provider: "ollama", Model: "llama3"})
	if p.(*OllamaProvider).baseURL != "http://gpu-box:11434" {
		t.Errorf("baseURL = %q", p.(*OllamaProvider).baseURL)
	}
}

func TestFactoryOpenRouter(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	p, err := NewProvider(Config{Provider: "openrouter", Model: "google/gemini-2.5-flash"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "openrouter" {
		t.Errorf("Name = %q", p.Name())
	}
}

func TestRateLimiterPassesThrough(t *testing.T) {
	inner := &staticProvider{}
	rl := NewRateLimitedProvider(inner, 60)

	resp, err := rl.Complete(context.Background(), request())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" || rl.Name() != "static" {
		t.Errorf("resp = %+v, name = %q", resp, rl.Name())
	}
}

func TestRateLimiterLimitsRequests(t *testing.T) {
	inner := &staticProvider{}
	rl := NewRateLimitedProvider(inner, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	for i := 0; i < 2; i++ {
		if _, err := rl.Complete(ctx, request()); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if _, err := rl.Complete(ctx, request()); err == nil {
		t.Error("expected the third request to wait past the deadline")
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want 2", inner.calls)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	inner := &staticProvider{}
	if NewRateLimitedProvider(inner, 0) != Provider(inner) {
		t.Error("rpm 0 should return the provider unwrapped")
	}
}

func TestEstimateCost(t *testing.T) {
	// gemini-2.5-flash: $0.30/1M input, $2.50/1M output
	cost := EstimateCost("gemini-2.5-flash", 1_000_000, 1_000_000)
	if cost < 2.79 || cost > 2.81 {
		t.Errorf("cost = %f, want ~2.80", cost)
	}
	if EstimateCost("unknown-model", 1000, 500) != 0 {
		t.Error("unknown model should cost 0")
	}
	resp := &CompletionResponse{Model: "gpt-4o", InputTokens: 1000, OutputTokens: 1000}
	if resp.Cost() <= 0 {
		t.Error("Cost should be positive for a priced model")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hi", 1},
		{"hello world!!", 3},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestCompletionResponseTruncated(t *testing.T) {
	tests := map[string]bool{
		"stop":       false,
		"STOP":       false,
		"":           false,
		"length":     true,
		"MAX_TOKENS": true,
	}
	for reason, want := range tests {
		r := &CompletionResponse{FinishReason: reason}
		if got := r.Truncated(); got != want {
			t.Errorf("Truncated(%q) = %t, want %t", reason, got, want)
		}
	}
}
