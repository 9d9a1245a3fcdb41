package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "*" {
		t.Errorf("expected cors *, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.NATS.Enabled() {
		t.Error("NATS should be disabled by default")
	}
	if cfg.Relay.SendOnConnect {
		t.Error("send_on_connect should default to false")
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "https://shredr.fun"
relay:
  write_timeout: 2s
  send_on_connect: true
  allowed_origins: ["shredr.fun", "*.shredr.fun"]
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "https://shredr.fun" {
		t.Errorf("expected cors https://shredr.fun, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Relay.WriteTimeout != 2*time.Second {
		t.Errorf("expected write timeout 2s, got %v", cfg.Relay.WriteTimeout)
	}
	if !cfg.Relay.SendOnConnect {
		t.Error("expected send_on_connect true")
	}
	if want := []string{"shredr.fun", "*.shredr.fun"}; !slices.Equal(cfg.Relay.AllowedOrigins, want) {
		t.Errorf("allowed origins = %v, want %v", cfg.Relay.AllowedOrigins, want)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.Relay.ReadLimit != 32<<10 {
		t.Errorf("expected default read limit, got %d", cfg.Relay.ReadLimit)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	if err := loadYAML(&cfg, "/nonexistent/path.yaml"); err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestLoadYAMLMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	if err := loadYAML(&cfg, path); err == nil {
		t.Error("expected parse error")
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("SHREDR_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("HELIUS_API_KEY", "helius-test-key")
	t.Setenv("SHREDR_PG_MAX_CONNS", "25")
	t.Setenv("SHREDR_LOG_LEVEL", "warn")
	t.Setenv("SHREDR_BREAKER_TIMEOUT", "1m")
	t.Setenv("SHREDR_RELAY_SEND_ON_CONNECT", "true")
	t.Setenv("SHREDR_RELAY_ALLOWED_ORIGINS", " a.example , ,b.example")
	t.Setenv("SHREDR_WEBHOOK_AUTH_TOKEN", "s3cret")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if !cfg.NATS.Enabled() || cfg.NATS.URL != "nats://nats:4222" {
		t.Errorf("expected NATS enabled with env URL, got %q", cfg.NATS.URL)
	}
	if cfg.Helius.APIKey != "helius-test-key" {
		t.Errorf("expected helius key from env, got %q", cfg.Helius.APIKey)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if !cfg.Relay.SendOnConnect {
		t.Error("expected send_on_connect from env")
	}
	if want := []string{"a.example", "b.example"}; !slices.Equal(cfg.Relay.AllowedOrigins, want) {
		t.Errorf("allowed origins = %v, want %v", cfg.Relay.AllowedOrigins, want)
	}
	if cfg.Webhook.AuthToken != "s3cret" {
		t.Errorf("expected webhook token from env, got %q", cfg.Webhook.AuthToken)
	}
}

func TestEnvInvalidValuesIgnored(t *testing.T) {
	cfg := Defaults()

	t.Setenv("SHREDR_PG_MAX_CONNS", "many")
	t.Setenv("SHREDR_RELAY_WRITE_TIMEOUT", "soon")
	t.Setenv("SHREDR_LOG_ASYNC", "perhaps")

	loadEnv(&cfg)

	def := Defaults()
	if cfg.Postgres.MaxConns != def.Postgres.MaxConns {
		t.Errorf("invalid int should keep default, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Relay.WriteTimeout != def.Relay.WriteTimeout {
		t.Errorf("invalid duration should keep default, got %v", cfg.Relay.WriteTimeout)
	}
	if cfg.Logging.Async {
		t.Error("invalid bool should keep default")
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "empty DSN",
			modify: func(c *Config) { c.Postgres.DSN = "" },
			errMsg: "postgres.dsn is required",
		},
		{
			name:   "nats without subject",
			modify: func(c *Config) { c.NATS.URL = "nats://x:4222"; c.NATS.Subject = "" },
			errMsg: "nats.subject is required",
		},
		{
			name:   "zero max conns",
			modify: func(c *Config) { c.Postgres.MaxConns = 0 },
			errMsg: "postgres.max_conns must be >= 1",
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
		{
			name:   "zero rate",
			modify: func(c *Config) { c.Rate.RequestsPerSecond = 0 },
			errMsg: "rate.requests_per_second must be > 0",
		},
		{
			name:   "zero burst",
			modify: func(c *Config) { c.Rate.Burst = 0 },
			errMsg: "rate.burst must be >= 1",
		},
		{
			name:   "negative write timeout",
			modify: func(c *Config) { c.Relay.WriteTimeout = -time.Second },
			errMsg: "relay.write_timeout must not be negative",
		},
		{
			name:   "zero read limit",
			modify: func(c *Config) { c.Relay.ReadLimit = 0 },
			errMsg: "relay.read_limit must be >= 1",
		},
		{
			name:   "zero cache size",
			modify: func(c *Config) { c.Cache.L1MaxSizeMB = 0 },
			errMsg: "cache.l1_max_size_mb must be >= 1",
		},
		{
			name:   "sample rate above one",
			modify: func(c *Config) { c.OTEL.SampleRate = 1.5 },
			errMsg: "otel.sample_rate must be within [0, 1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}
