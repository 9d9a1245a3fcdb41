package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "shredr.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error. SHREDR_CONFIG
// overrides the file path.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("SHREDR_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SHREDR_PORT")
	setString(&cfg.Server.CORSOrigin, "SHREDR_CORS_ORIGIN")
	setDuration(&cfg.Server.ShutdownTimeout, "SHREDR_SHUTDOWN_TIMEOUT")
	setBool(&cfg.Server.TrustProxy, "SHREDR_TRUST_PROXY")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "SHREDR_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "SHREDR_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "SHREDR_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "SHREDR_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "SHREDR_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Subject, "SHREDR_NATS_SUBJECT")
	setString(&cfg.NATS.CacheBucket, "SHREDR_NATS_CACHE_BUCKET")
	setString(&cfg.NATS.IdempotencyBucket, "SHREDR_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.NATS.IdempotencyTTL, "SHREDR_IDEMPOTENCY_TTL")

	setString(&cfg.Logging.Level, "SHREDR_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SHREDR_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "SHREDR_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "SHREDR_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "SHREDR_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "SHREDR_RATE_RPS")
	setInt(&cfg.Rate.Burst, "SHREDR_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "SHREDR_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "SHREDR_RATE_MAX_IDLE_TIME")

	setDuration(&cfg.Relay.WriteTimeout, "SHREDR_RELAY_WRITE_TIMEOUT")
	setInt64(&cfg.Relay.ReadLimit, "SHREDR_RELAY_READ_LIMIT")
	setBool(&cfg.Relay.SendOnConnect, "SHREDR_RELAY_SEND_ON_CONNECT")
	setList(&cfg.Relay.AllowedOrigins, "SHREDR_RELAY_ALLOWED_ORIGINS")

	setString(&cfg.Webhook.AuthToken, "SHREDR_WEBHOOK_AUTH_TOKEN")

	setString(&cfg.Helius.APIKey, "HELIUS_API_KEY")
	setString(&cfg.Helius.BaseURL, "SHREDR_HELIUS_BASE_URL")
	setDuration(&cfg.Helius.Timeout, "SHREDR_HELIUS_TIMEOUT")

	setInt(&cfg.Cache.L1MaxSizeMB, "SHREDR_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "SHREDR_CACHE_TTL")

	setBool(&cfg.OTEL.Enabled, "SHREDR_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "SHREDR_OTEL_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "SHREDR_OTEL_INSECURE")
	setString(&cfg.OTEL.ServiceName, "SHREDR_OTEL_SERVICE_NAME")
	setFloat64(&cfg.OTEL.SampleRate, "SHREDR_OTEL_SAMPLE_RATE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.NATS.Enabled() && cfg.NATS.Subject == "" {
		return errors.New("nats.subject is required when nats.url is set")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.RequestsPerSecond <= 0 {
		return errors.New("rate.requests_per_second must be > 0")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Relay.WriteTimeout < 0 {
		return errors.New("relay.write_timeout must not be negative")
	}
	if cfg.Relay.ReadLimit < 1 {
		return errors.New("relay.read_limit must be >= 1")
	}
	if cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1")
	}
	if cfg.OTEL.SampleRate < 0 || cfg.OTEL.SampleRate > 1 {
		return errors.New("otel.sample_rate must be within [0, 1]")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setList splits a comma-separated value, dropping empty items.
func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
