package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.Workers != 1 {
		t.Fatalf("expected 1 worker by default, got %d", c.Workers)
	}
	if c.BaseURL == "" || c.DataDir == "" {
		t.Fatalf("expected base url and data dir to be set, got %+v", c)
	}
	if len(c.BlockPhrases) != 7 {
		t.Fatalf("expected 7 default block phrases, got %d", len(c.BlockPhrases))
	}
	if len(c.Browser.UserAgents) == 0 || len(c.Browser.ViewportSizes) == 0 {
		t.Fatal("expected browser fingerprint defaults to be filled in")
	}
	if c.Selectors.Login.UsernameField == "" || c.Selectors.Follow.FollowButton == "" {
		t.Fatal("expected default selectors to be filled in")
	}
	if c.Delays.BetweenActions.Min != 5 || c.Delays.BetweenActions.Max != 15 {
		t.Fatalf("unexpected default between-actions delay: %+v", c.Delays.BetweenActions)
	}
}

func TestNewConfigMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
workers: 3
delays:
  between_actions:
    min: 1
    max: 2
selectors:
  login:
    username_field: "input#user"
    password_field: "input#pass"
    login_button: "button#go"
    dismiss_popup: "button#later"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error writing config: %v", err)
	}

	c, err := NewConfig(path)
	if err != nil {
		t.Fatalf("unexpected error reading config: %v", err)
	}
	if c.Workers != 3 {
		t.Fatalf("expected 3 workers, got %d", c.Workers)
	}
	if c.Delays.BetweenActions.Min != 1 || c.Delays.BetweenActions.Max != 2 {
		t.Fatalf("expected configured between-actions delay, got %+v", c.Delays.BetweenActions)
	}
	// untouched delay groups keep their defaults
	if c.Delays.BetweenTargets.Min != 30 || c.Delays.BetweenTargets.Max != 90 {
		t.Fatalf("expected default between-targets delay, got %+v", c.Delays.BetweenTargets)
	}
	if c.Selectors.Login.UsernameField != "input#user" {
		t.Fatalf("expected configured login selector, got %q", c.Selectors.Login.UsernameField)
	}
	// other selector groups keep their defaults
	if c.Selectors.Posts.PostLinks == "" {
		t.Fatal("expected default post selectors to survive a partial override")
	}
}

func TestNewConfigMissingFile(t *testing.T) {
	if _, err := NewConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestGetLogLevel(t *testing.T) {
	Debug = false
	if GetLogLevel().String() != "INFO" {
		t.Fatalf("expected INFO, got %s", GetLogLevel())
	}
	Debug = true
	defer func() { Debug = false }()
	if GetLogLevel().String() != "DEBUG" {
		t.Fatalf("expected DEBUG, got %s", GetLogLevel())
	}
}
