package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Provider      ProviderConfig
	Notify        NotifyConfig
	RateLimit     RateLimitConfig
	Reconcile     ReconcileConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL         string
	ReplicaURLs []string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// ProviderConfig holds external payment provider configuration
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	// Timeout bounds the session retrieval call; a timeout is always
	// retryable because no local state is mutated before it succeeds.
	Timeout time.Duration
}

// NotifyConfig holds the outbound lifecycle notification endpoint
type NotifyConfig struct {
	// URL receives signed lifecycle event POSTs; empty disables delivery
	URL string
	// Secret signs the event payload with HMAC-SHA256
	Secret string
	// Timeout bounds one delivery attempt
	Timeout time.Duration
}

// RateLimitConfig holds webhook rate limiting configuration
type RateLimitConfig struct {
	// RedisURL enables the distributed limiter when set; empty falls back
	// to the in-process limiter
	RedisURL          string
	RedisPassword     string
	RedisDB           int
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// ReconcileConfig holds the stale-ledger reconciliation schedule
type ReconcileConfig struct {
	// Schedule is a cron expression; empty disables the sweep
	Schedule string
	// MinAge is how long an entry may sit in PENDING before the sweep
	// re-drives it
	MinAge time.Duration
	Limit  int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Provider:      loadProviderConfig(),
		Notify:        loadNotifyConfig(),
		RateLimit:     loadRateLimitConfig(),
		Reconcile:     loadReconcileConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SUBENGINE_HOST", "0.0.0.0"),
		Port:            getEnv("SUBENGINE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SUBENGINE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SUBENGINE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SUBENGINE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SUBENGINE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SUBENGINE_HEALTH_PORT", "9090"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	cfg := DatabaseConfig{
		URL:         getEnv("SUBENGINE_POSTGRES_URL", ""),
		MaxConns:    getEnvInt("SUBENGINE_POSTGRES_MAX_CONNS", 20),
		MinConns:    getEnvInt("SUBENGINE_POSTGRES_MIN_CONNS", 2),
		Timeout:     getEnvDuration("SUBENGINE_POSTGRES_TIMEOUT", 5*time.Second),
		MaxLifetime: getEnvDuration("SUBENGINE_POSTGRES_MAX_LIFETIME", 30*time.Minute),
		MaxIdleTime: getEnvDuration("SUBENGINE_POSTGRES_MAX_IDLE_TIME", 5*time.Minute),
	}

	if replicas := getEnv("SUBENGINE_POSTGRES_REPLICA_URLS", ""); replicas != "" {
		for _, url := range strings.Split(replicas, ",") {
			if url = strings.TrimSpace(url); url != "" {
				cfg.ReplicaURLs = append(cfg.ReplicaURLs, url)
			}
		}
	}

	return cfg
}

func loadProviderConfig() ProviderConfig {
	return ProviderConfig{
		BaseURL: getEnv("SUBENGINE_PROVIDER_BASE_URL", ""),
		APIKey:  getEnv("SUBENGINE_PROVIDER_API_KEY", ""),
		Timeout: getEnvDuration("SUBENGINE_PROVIDER_TIMEOUT", 10*time.Second),
	}
}

func loadNotifyConfig() NotifyConfig {
	return NotifyConfig{
		URL:     getEnv("SUBENGINE_NOTIFY_URL", ""),
		Secret:  getEnv("SUBENGINE_NOTIFY_SECRET", ""),
		Timeout: getEnvDuration("SUBENGINE_NOTIFY_TIMEOUT", 10*time.Second),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RedisURL:          getEnv("SUBENGINE_REDIS_URL", ""),
		RedisPassword:     getEnv("SUBENGINE_REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("SUBENGINE_REDIS_DB", 0),
		RequestsPerWindow: getEnvInt("SUBENGINE_WEBHOOK_RATE_LIMIT", 120),
		WindowDuration:    getEnvDuration("SUBENGINE_WEBHOOK_RATE_WINDOW", time.Minute),
	}
}

func loadReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		Schedule: getEnv("SUBENGINE_RECONCILE_SCHEDULE", "*/10 * * * *"),
		MinAge:   getEnvDuration("SUBENGINE_RECONCILE_MIN_AGE", 15*time.Minute),
		Limit:    getEnvInt("SUBENGINE_RECONCILE_LIMIT", 100),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("SUBENGINE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("SUBENGINE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("SUBENGINE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("SUBENGINE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("SUBENGINE_OTEL_SERVICE_NAME", "entitlement-engine"),
		OTelServiceVersion: getEnv("SUBENGINE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("SUBENGINE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Provider.BaseURL == "" {
		return fmt.Errorf("payment provider base URL is required")
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("payment provider timeout must be positive")
	}

	if c.Notify.URL != "" && c.Notify.Secret == "" {
		return fmt.Errorf("notify secret is required when a notify URL is configured")
	}

	if c.Reconcile.Schedule != "" && c.Reconcile.MinAge <= 0 {
		return fmt.Errorf("reconcile min age must be positive when the sweep is enabled")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
