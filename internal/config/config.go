package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv                  string
	Port                    string
	DatabaseURL             string
	RedisURL                string
	CORSAllowedOrigins      []string
	CurrencyCode            string
	CatalogCacheTTL         time.Duration
	IdempotencyTTL          time.Duration
	RateLimitQuotePerMinute int
	RateLimitStrategy       string
	OrderQueue              string
	WorkerConcurrency       int
	LogFormat               string
	LogLevel                string
	MetricsNamespace        string
	TracingEnabled          bool
	OTLPEndpoint            string
	TracingSamplingRatio    float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:                  valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                    valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:             k.String("DATABASE_URL"),
		RedisURL:                k.String("REDIS_URL"),
		CORSAllowedOrigins:      splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:            strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "EUR")),
		CatalogCacheTTL:         parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		IdempotencyTTL:          parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
		RateLimitQuotePerMinute: parseInt(k.String("RATE_LIMIT_QUOTE_PER_MINUTE"), 60),
		RateLimitStrategy:       strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_STRATEGY"), "fixed")),
		OrderQueue:              valueOrDefault(k.String("ORDER_QUEUE"), "orders"),
		WorkerConcurrency:       parseInt(k.String("WORKER_CONCURRENCY"), 5),
		LogFormat:               valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:                valueOrDefault(k.String("LOG_LEVEL"), "info"),
		MetricsNamespace:        valueOrDefault(k.String("METRICS_NAMESPACE"), "simrig"),
		TracingEnabled:          parseBool(k.String("TRACING_ENABLED")),
		OTLPEndpoint:            strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_ENDPOINT")),
		TracingSamplingRatio:    parseFloat(k.String("TRACING_SAMPLING_RATIO"), 1),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.RateLimitStrategy != "fixed" && cfg.RateLimitStrategy != "sliding" {
		return nil, fmt.Errorf("RATE_LIMIT_STRATEGY must be fixed or sliding, got %q", cfg.RateLimitStrategy)
	}
	if cfg.TracingSamplingRatio < 0 || cfg.TracingSamplingRatio > 1 {
		return nil, fmt.Errorf("TRACING_SAMPLING_RATIO must be within [0,1], got %v", cfg.TracingSamplingRatio)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
