package core

import (
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.PublicBaseURL = "https://bridge.example.com"
	cfg.Provider.ClientID = "client-123"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"valid defaults", func(*Config) {}, true},
		{"missing public base url", func(c *Config) { c.PublicBaseURL = "" }, false},
		{"missing client id", func(c *Config) { c.Provider.ClientID = "" }, false},
		{"missing authorize url", func(c *Config) { c.Provider.AuthorizeURL = "" }, false},
		{"zero ttl", func(c *Config) { c.Session.TTL = 0 }, false},
		{"zero sweep interval", func(c *Config) { c.Session.SweepInterval = 0 }, false},
		{"buffer below terminal pair", func(c *Config) { c.Session.SocketBuffer = 1 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.valid && err != nil {
				t.Fatalf("expected config to validate, got %v", err)
			}
			if !tc.valid && err == nil {
				t.Fatalf("expected config validation to fail")
			}
		})
	}
}

func TestConfigRedirectURI(t *testing.T) {
	cfg := validTestConfig()
	if got := cfg.RedirectURI(); got != "https://bridge.example.com/bridge/callback" {
		t.Fatalf("unexpected redirect uri %q", got)
	}

	cfg.PublicBaseURL = "https://bridge.example.com/"
	cfg.CallbackPath = "bridge/callback"
	if got := cfg.RedirectURI(); got != "https://bridge.example.com/bridge/callback" {
		t.Fatalf("expected slash normalization, got %q", got)
	}
}

func TestDefaultConfigSessionBounds(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Session.TTL != 30*time.Minute {
		t.Fatalf("unexpected default ttl %v", cfg.Session.TTL)
	}
	if cfg.Session.SweepInterval != time.Minute {
		t.Fatalf("unexpected default sweep interval %v", cfg.Session.SweepInterval)
	}
	if cfg.Session.SocketBuffer < 2 {
		t.Fatalf("default socket buffer must hold the terminal pair")
	}
}
