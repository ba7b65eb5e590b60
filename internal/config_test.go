package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Search.Debounce != 300*time.Millisecond || cfg.Search.HistoryLimit != 50 {
		t.Errorf("search defaults = %+v", cfg.Search)
	}
}

func TestSearchConfig_Bounds(t *testing.T) {
	cases := map[string]func(c *SearchConfig){
		"debounce too short":   func(c *SearchConfig) { c.Debounce = time.Millisecond },
		"no history":           func(c *SearchConfig) { c.HistoryLimit = 0 },
		"history too long":     func(c *SearchConfig) { c.HistoryLimit = 5000 },
		"no purge interval":    func(c *SearchConfig) { c.PurgeInterval = 0 },
		"no input rate":        func(c *SearchConfig) { c.InputRate = 0 },
		"negative input burst": func(c *SearchConfig) { c.InputBurst = -1 },
		"no session idle ttl":  func(c *SearchConfig) { c.SessionIdleTTL = 0 },
		"idle ttl too short":   func(c *SearchConfig) { c.SessionIdleTTL = time.Millisecond },
		"no session cap":       func(c *SearchConfig) { c.MaxSessions = 0 },
	}
	for name, mutate := range cases {
		c := NewDefaultConfig().Search
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error for %+v", name, c)
		}
	}
}

func TestCatalogConfig_WatchNeedsPath(t *testing.T) {
	cfg := CatalogConfig{Watch: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("watch without path should fail")
	}
	cfg.Path = "catalog.yaml"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("watch with path should pass: %v", err)
	}
	if err := (&CatalogConfig{}).Validate(); err != nil {
		t.Fatalf("built-in catalogue should pass: %v", err)
	}
}
