package cmd

import (
	"bytes"
	"encoding/base64"
	"testing"
	"time"
)

func TestSessionSecretBytes(t *testing.T) {
	longRaw := bytes.Repeat([]byte{0xAB}, 48)

	tests := []struct {
		name     string
		input    string
		expected []byte
	}{
		{
			name:     "base64 value is decoded",
			input:    base64.StdEncoding.EncodeToString(longRaw),
			expected: longRaw,
		},
		{
			name:     "plain string stays raw",
			input:    "this-is-a-plain-session-secret-string!",
			expected: []byte("this-is-a-plain-session-secret-string!"),
		},
		{
			// 32 base64 characters decode to 24 bytes, below the session
			// manager's minimum; the raw form is the stronger reading.
			name:     "short base64 falls back to raw",
			input:    "abcdefghijklmnopqrstuvwxyzABCDEF",
			expected: []byte("abcdefghijklmnopqrstuvwxyzABCDEF"),
		},
		{
			name:     "empty string",
			input:    "",
			expected: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sessionSecretBytes(tt.input)
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("sessionSecretBytes(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCallbackURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		expected string
	}{
		{
			name:     "plain base URL",
			baseURL:  "https://dashboard.example.com",
			expected: "https://dashboard.example.com/auth/google/callback",
		},
		{
			name:     "trailing slash",
			baseURL:  "https://dashboard.example.com/",
			expected: "https://dashboard.example.com/auth/google/callback",
		},
		{
			name:     "localhost with port",
			baseURL:  "http://localhost:8080",
			expected: "http://localhost:8080/auth/google/callback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callbackURL(tt.baseURL)
			if result != tt.expected {
				t.Errorf("callbackURL(%q) = %q, want %q", tt.baseURL, result, tt.expected)
			}
		})
	}
}

func TestLoadServeEnvVars(t *testing.T) {
	t.Run("env fills unset flags", func(t *testing.T) {
		t.Setenv("DAYBOARD_ADDR", ":9999")
		t.Setenv("MONGODB_URI", "mongodb://db.internal:27017")
		t.Setenv("DAYBOARD_SESSION_TTL", "12h")
		t.Setenv("DAYBOARD_SECURE_COOKIES", "true")
		t.Setenv("DAYBOARD_RATE_LIMIT", "60")
		t.Setenv("METRICS_ENABLED", "false")

		cmd := newServeCmd()
		cfg := ServeConfig{Addr: ":8080", MongoURI: "mongodb://localhost:27017", Metrics: MetricsConfig{Enabled: true}}
		loadServeEnvVars(cmd, &cfg)

		if cfg.Addr != ":9999" {
			t.Errorf("Addr = %q, want %q", cfg.Addr, ":9999")
		}
		if cfg.MongoURI != "mongodb://db.internal:27017" {
			t.Errorf("MongoURI = %q, want %q", cfg.MongoURI, "mongodb://db.internal:27017")
		}
		if cfg.SessionTTL != 12*time.Hour {
			t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, 12*time.Hour)
		}
		if !cfg.SecureCookies {
			t.Error("SecureCookies = false, want true")
		}
		if cfg.RateLimitRequests != 60 {
			t.Errorf("RateLimitRequests = %d, want 60", cfg.RateLimitRequests)
		}
		if cfg.Metrics.Enabled {
			t.Error("Metrics.Enabled = true, want false")
		}
	})

	t.Run("explicit flags win over env", func(t *testing.T) {
		t.Setenv("DAYBOARD_ADDR", ":9999")
		t.Setenv("DAYBOARD_RATE_LIMIT", "60")

		cmd := newServeCmd()
		if err := cmd.Flags().Set("addr", ":7070"); err != nil {
			t.Fatalf("failed to set flag: %v", err)
		}
		if err := cmd.Flags().Set("rate-limit", "10"); err != nil {
			t.Fatalf("failed to set flag: %v", err)
		}

		cfg := ServeConfig{Addr: ":7070", RateLimitRequests: 10}
		loadServeEnvVars(cmd, &cfg)

		if cfg.Addr != ":7070" {
			t.Errorf("Addr = %q, want %q", cfg.Addr, ":7070")
		}
		if cfg.RateLimitRequests != 10 {
			t.Errorf("RateLimitRequests = %d, want 10", cfg.RateLimitRequests)
		}
	})

	t.Run("invalid values are ignored", func(t *testing.T) {
		t.Setenv("DAYBOARD_SESSION_TTL", "not-a-duration")
		t.Setenv("DAYBOARD_RATE_LIMIT", "not-a-number")
		t.Setenv("METRICS_ENABLED", "not-a-bool")

		cmd := newServeCmd()
		cfg := ServeConfig{SessionTTL: time.Hour, RateLimitRequests: 120, Metrics: MetricsConfig{Enabled: true}}
		loadServeEnvVars(cmd, &cfg)

		if cfg.SessionTTL != time.Hour {
			t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, time.Hour)
		}
		if cfg.RateLimitRequests != 120 {
			t.Errorf("RateLimitRequests = %d, want 120", cfg.RateLimitRequests)
		}
		if !cfg.Metrics.Enabled {
			t.Error("Metrics.Enabled = false, want true")
		}
	})

	t.Run("empty env leaves defaults", func(t *testing.T) {
		t.Setenv("DAYBOARD_ADDR", "")
		t.Setenv("MONGODB_URI", "")

		cmd := newServeCmd()
		cfg := ServeConfig{Addr: ":8080", MongoURI: "mongodb://localhost:27017"}
		loadServeEnvVars(cmd, &cfg)

		if cfg.Addr != ":8080" {
			t.Errorf("Addr = %q, want %q", cfg.Addr, ":8080")
		}
		if cfg.MongoURI != "mongodb://localhost:27017" {
			t.Errorf("MongoURI = %q, want %q", cfg.MongoURI, "mongodb://localhost:27017")
		}
	})
}

func TestRunServe_MissingConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServeConfig
	}{
		{
			name: "missing google credentials",
			cfg:  ServeConfig{SessionSecret: "0123456789abcdef0123456789abcdef"},
		},
		{
			name: "missing session secret",
			cfg:  ServeConfig{GoogleClientID: "id", GoogleClientSecret: "secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runServe(tt.cfg); err == nil {
				t.Error("expected configuration error, got nil")
			}
		})
	}
}
