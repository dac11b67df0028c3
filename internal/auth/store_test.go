package auth

import (
	"os"
	"testing"
)

func TestGetAPIKeyPriority(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")

	if got := GetAPIKey("openai"); got != "" {
		t.Errorf("expected no key, got %q", got)
	}

	if err := SetAPIKey("openai", "stored"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if got := GetAPIKey("openai"); got != "stored" {
		t.Errorf("stored key = %q", got)
	}

	t.Setenv("OPENAI_API_KEY", "from-env")
	if got := GetAPIKey("openai"); got != "from-env" {
		t.Errorf("env key = %q", got)
	}
}

func TestSetAPIKeyKeepsOthers(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GOOGLE_API_KEY", "")

	if err := SetAPIKey("openrouter", "a"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if err := SetAPIKey("google", "b"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	creds, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if creds.OpenRouter == nil || creds.OpenRouter.APIKey != "a" || creds.Google == nil || creds.Google.APIKey != "b" {
		t.Errorf("creds = %+v", creds)
	}

	path, _ := CredentialPath()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v", info.Mode().Perm())
	}
}

func TestSetAPIKeyUnknownProvider(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := SetAPIKey("ollama", "x"); err == nil {
		t.Error("expected error")
	}
}

func TestRemoveAPIKeyAndSource(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	if err := SetAPIKey("openai", "a"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if err := SetAPIKey("google", "b"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if got := KeySource("openai"); got != "stored" {
		t.Errorf("KeySource = %q", got)
	}

	if err := RemoveAPIKey("openai"); err != nil {
		t.Fatalf("RemoveAPIKey: %v", err)
	}
	if got := KeySource("openai"); got != "" {
		t.Errorf("KeySource after remove = %q", got)
	}
	if got := GetAPIKey("google"); got != "b" {
		t.Errorf("google key = %q", got)
	}

	t.Setenv("GOOGLE_API_KEY", "env")
	if got := KeySource("google"); got != "env var" {
		t.Errorf("KeySource = %q", got)
	}

	if err := RemoveAPIKey(""); err != nil {
		t.Fatalf("RemoveAPIKey all: %v", err)
	}
	if creds, _ := Load(); creds.Google != nil {
		t.Errorf("creds = %+v", creds)
	}
	if err := RemoveAPIKey("nope"); err == nil {
		t.Error("expected error for unknown provider")
	}
}
