package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DBPath != "./data/simserver.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.AttemptTTL != 2*time.Hour {
		t.Errorf("AttemptTTL = %v, want 2h", cfg.AttemptTTL)
	}
	if cfg.ReplyTimeout != 10*time.Second {
		t.Errorf("ReplyTimeout = %v, want 10s", cfg.ReplyTimeout)
	}
	if cfg.ReplyModel != "haiku" {
		t.Errorf("ReplyModel = %q, want haiku", cfg.ReplyModel)
	}
	if cfg.MaxTurns != 12 {
		t.Errorf("MaxTurns = %d, want 12", cfg.MaxTurns)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ATTEMPT_TTL", "30m")
	t.Setenv("MAX_TURNS", "20")
	t.Setenv("REPLY_MODEL", "sonnet")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.AttemptTTL != 30*time.Minute {
		t.Errorf("AttemptTTL = %v, want 30m", cfg.AttemptTTL)
	}
	if cfg.MaxTurns != 20 {
		t.Errorf("MaxTurns = %d, want 20", cfg.MaxTurns)
	}
	if cfg.ReplyModel != "sonnet" {
		t.Errorf("ReplyModel = %q, want sonnet", cfg.ReplyModel)
	}
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("ATTEMPT_TTL", "not-a-duration")
	t.Setenv("REPLY_TIMEOUT", "-5s")
	t.Setenv("MAX_TURNS", "twelve")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AttemptTTL != 2*time.Hour {
		t.Errorf("AttemptTTL = %v, want fallback 2h", cfg.AttemptTTL)
	}
	if cfg.ReplyTimeout != 10*time.Second {
		t.Errorf("ReplyTimeout = %v, want fallback 10s", cfg.ReplyTimeout)
	}
	if cfg.MaxTurns != 12 {
		t.Errorf("MaxTurns = %d, want fallback 12", cfg.MaxTurns)
	}
}

func TestValidate(t *testing.T) {
	valid := &Config{
		Port:         "8080",
		DBPath:       "x.db",
		AttemptTTL:   time.Hour,
		ReplyTimeout: time.Second,
		MaxTurns:     12,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	broken := *valid
	broken.MaxTurns = 0
	if err := broken.Validate(); err == nil {
		t.Error("expected error for zero MaxTurns")
	}

	broken = *valid
	broken.DBPath = ""
	if err := broken.Validate(); err == nil {
		t.Error("expected error for empty DBPath")
	}
}

func TestIsDevelopment(t *testing.T) {
	cases := map[string]bool{
		"":                          true,
		"http://localhost:3000":     true,
		"http://127.0.0.1:5173":     true,
		"https://app.dooriq.com":    false,
		"https://train.example.org": false,
	}
	for url, want := range cases {
		cfg := &Config{FrontendURL: url}
		if got := cfg.IsDevelopment(); got != want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", url, got, want)
		}
	}
}
