package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Port:            "8080",
		DBPath:          "./data/test.db",
		JWTSecret:       strings.Repeat("s", 32),
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 720 * time.Hour,
		EventBufferSize: 256,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"non-numeric port", func(c *Config) { c.Port = "http" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid port"},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET must be set"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "at least 32"},
		{"refresh shorter than access", func(c *Config) {
			c.RefreshTokenTTL = time.Minute
		}, "REFRESH_TOKEN_TTL"},
		{"zero buffer", func(c *Config) { c.EventBufferSize = 0 }, "EVENT_BUFFER_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %s, want 15m", cfg.AccessTokenTTL)
	}
	if cfg.EventBufferSize != 256 {
		t.Errorf("EventBufferSize = %d, want 256", cfg.EventBufferSize)
	}
}
