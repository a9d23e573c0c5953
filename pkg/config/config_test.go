package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// helper to build a minimal valid config that can be tweaked in tests.
func validBaseConfig() *Config {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.HTTP.RequestsPerSecond = 10
	cfg.RateLimiting.HTTP.Burst = 20
	cfg.RateLimiting.HTTP.MaxConcurrent = 5
	cfg.RateLimiting.WebSocket.MessagesPerSecond = 50
	cfg.RateLimiting.WebSocket.Burst = 100
	cfg.RateLimiting.WebSocket.MaxMessageSizeBytes = 65536
	return cfg
}

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got: %v", err)
	}
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 0
	cfg.RateLimiting.HTTP.Burst = 0
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	cfg.RateLimiting.WebSocket.MessagesPerSecond = 0
	cfg.RateLimiting.WebSocket.Burst = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "http rps must be > 0",
			mutate: func(c *Config) { c.RateLimiting.HTTP.RequestsPerSecond = 0 },
		},
		{
			name:   "http burst must be > 0",
			mutate: func(c *Config) { c.RateLimiting.HTTP.Burst = 0 },
		},
		{
			name:   "http max concurrent must be >= 0",
			mutate: func(c *Config) { c.RateLimiting.HTTP.MaxConcurrent = -1 },
		},
		{
			name:   "ws messages per second must be > 0",
			mutate: func(c *Config) { c.RateLimiting.WebSocket.MessagesPerSecond = 0 },
		},
		{
			name:   "ws burst must be > 0",
			mutate: func(c *Config) { c.RateLimiting.WebSocket.Burst = 0 },
		},
		{
			name:   "ws max message size must be >= 0",
			mutate: func(c *Config) { c.RateLimiting.WebSocket.MaxMessageSizeBytes = -1 },
		},
		{
			name:   "pong timeout must exceed ping interval",
			mutate: func(c *Config) { c.Realtime.PongTimeout = c.Realtime.PingInterval },
		},
		{
			name:   "realtime path must be absolute",
			mutate: func(c *Config) { c.Realtime.Path = "ws" },
		},
		{
			name:   "unknown storage backend",
			mutate: func(c *Config) { c.Storage.Backend = "mongo" },
		},
		{
			name:   "redis backend requires redis enabled",
			mutate: func(c *Config) { c.Storage.Backend = StorageRedis },
		},
		{
			name:   "postgres backend requires dsn",
			mutate: func(c *Config) { c.Storage.Backend = StoragePostgres },
		},
		{
			name:   "at least one connect attempt",
			mutate: func(c *Config) { c.Storage.ConnectAttempts = 0 },
		},
		{
			name:   "breaker needs a cooldown",
			mutate: func(c *Config) { c.Storage.BreakerCooldown = 0 },
		},
		{
			name:   "session secret required",
			mutate: func(c *Config) { c.Session.Secret = "" },
		},
		{
			name:   "snapshot max bytes must be > 0",
			mutate: func(c *Config) { c.Snapshot.MaxBytes = 0 },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBaseConfig()
			cfg.Server.ReadTimeout = time.Second
			cfg.Server.WriteTimeout = time.Second
			tc.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  address: ":9999"
realtime:
  send_queue_size: 32
session:
  cookie_name: "sid"
logging:
  level: "debug"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Address != ":9999" {
		t.Errorf("Server.Address = %q, want :9999", cfg.Server.Address)
	}
	if cfg.Realtime.SendQueueSize != 32 {
		t.Errorf("Realtime.SendQueueSize = %d, want 32", cfg.Realtime.SendQueueSize)
	}
	if cfg.Session.CookieName != "sid" {
		t.Errorf("Session.CookieName = %q, want sid", cfg.Session.CookieName)
	}
	// untouched values keep their defaults
	if cfg.Realtime.Path != "/ws" {
		t.Errorf("Realtime.Path = %q, want /ws", cfg.Realtime.Path)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SKETCHROOM_SERVER_ADDRESS", ":7070")
	t.Setenv("SKETCHROOM_SESSION_SECRET", "from-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Errorf("Server.Address = %q, want :7070", cfg.Server.Address)
	}
	if cfg.Session.Secret != "from-env" {
		t.Errorf("Session.Secret = %q, want from-env", cfg.Session.Secret)
	}
}
