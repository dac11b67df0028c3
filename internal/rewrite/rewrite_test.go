package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ziadkadry99/themestudio/internal/llm"
)

type fakeProvider struct {
	content string
	finish  string
	err     error
	last    llm.CompletionRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content, Model: "gemini-2.5-flash", InputTokens: 100, OutputTokens: 50, FinishReason: f.finish}, nil
}

func TestRewriteStripsFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "<p>x</p>", "<p>x</p>"},
		{"html fence", "```html\n<p>x</p>\n```", "<p>x</p>"},
		{"bare fence", "```\n<p>x</p>\n```", "<p>x</p>"},
		{"surrounding space", "\n  ```html\n<p>x</p>```  \n", "<p>x</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&fakeProvider{content: tt.in}, Options{})
			got, err := svc.Rewrite(context.Background(), "<p>old</p>", "change", "")
			if err != nil {
				t.Fatalf("Rewrite: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRewriteEchoesOnError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&fakeProvider{err: boom}, Options{})

	var observed error
	svc.OnComplete(func(u Usage, err error) { observed = err })

	got, err := svc.Rewrite(context.Background(), "<p>old</p>", "change", "")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if got != "<p>old</p>" {
		t.Errorf("got %q, want the input echoed", got)
	}
	if !errors.Is(observed, boom) {
		t.Errorf("observer saw %v", observed)
	}
}

func TestRewriteEchoesOnEmptyAnswer(t *testing.T) {
	svc := NewService(&fakeProvider{content: "```html\n```"}, Options{})
	got, err := svc.Rewrite(context.Background(), "<p>old</p>", "change", "")
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if got != "<p>old</p>" {
		t.Errorf("got %q", got)
	}
}

func TestRewritePrompt(t *testing.T) {
	fake := &fakeProvider{content: "<p>new</p>"}
	svc := NewService(fake, Options{Model: "gemini-2.5-flash", MaxTokens: 2048, Temperature: 0.4})

	var usage Usage
	svc.OnComplete(func(u Usage, err error) { usage = u })

	hint := ElementHint("eab-1", "h1", "Welcome")
	if _, err := svc.Rewrite(context.Background(), "<h1>Welcome</h1>", "make it blue", hint); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}

	req := fake.last
	if req.Model != "gemini-2.5-flash" || req.MaxTokens != 2048 || req.Temperature != 0.4 {
		t.Errorf("request options = %+v", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != llm.RoleSystem {
		t.Fatalf("messages = %+v", req.Messages)
	}
	user := req.Messages[1].Content
	for _, want := range []string{"<h1>Welcome</h1>", "User Request: make it blue", `element with ID "eab-1"`, "<h1>"} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q:\n%s", want, user)
		}
	}
	if usage.InputTokens != 100 || usage.Cost <= 0 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestElementHint(t *testing.T) {
	got := ElementHint("e1-2", "button", "Buy now")
	want := `The user has specifically selected the HTML element with ID "e1-2", which is a <button> containing the text: "Buy now". Focus your changes on or relative to this element if relevant.`
	if got != want {
		t.Errorf("ElementHint = %q", got)
	}
}

func TestUnconfiguredEchoes(t *testing.T) {
	out, err := Unconfigured{}.Rewrite(context.Background(), "<p>x</p>", "anything", "")
	if !errors.Is(err, ErrNoProvider) || out != "<p>x</p>" {
		t.Errorf("Rewrite = %q, %v", out, err)
	}
}

func TestRewriteRejectsTruncatedAnswer(t *testing.T) {
	svc := NewService(&fakeProvider{content: "<html><body><p>half", finish: "MAX_TOKENS"}, Options{})
	got, err := svc.Rewrite(context.Background(), "<p>old</p>", "change", "")
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v", err)
	}
	if got != "<p>old</p>" {
		t.Errorf("got %q, want current page", got)
	}
}
