package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SUBENGINE_POSTGRES_URL", "postgres://localhost/registry")
	t.Setenv("SUBENGINE_PROVIDER_BASE_URL", "https://api.payments.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 120, cfg.RateLimit.RequestsPerWindow)
	assert.Equal(t, 15*time.Minute, cfg.Reconcile.MinAge)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SUBENGINE_POSTGRES_URL", "postgres://localhost/registry")
	t.Setenv("SUBENGINE_POSTGRES_REPLICA_URLS", "postgres://r1/registry, postgres://r2/registry")
	t.Setenv("SUBENGINE_PROVIDER_BASE_URL", "https://api.payments.test")
	t.Setenv("SUBENGINE_PROVIDER_TIMEOUT", "3s")
	t.Setenv("SUBENGINE_LOG_LEVEL", "debug")
	t.Setenv("SUBENGINE_WEBHOOK_RATE_LIMIT", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"postgres://r1/registry", "postgres://r2/registry"}, cfg.Database.ReplicaURLs)
	assert.Equal(t, 3*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 10, cfg.RateLimit.RequestsPerWindow)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8080", HealthPort: "9090"},
			Database: DatabaseConfig{
				URL: "postgres://localhost/registry",
			},
			Provider: ProviderConfig{
				BaseURL: "https://api.payments.test",
				Timeout: 10 * time.Second,
			},
			Reconcile: ReconcileConfig{Schedule: "* * * * *", MinAge: time.Minute},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing postgres URL", func(t *testing.T) {
		cfg := base()
		cfg.Database.URL = ""
		assert.ErrorContains(t, cfg.Validate(), "postgres URL")
	})

	t.Run("missing provider URL", func(t *testing.T) {
		cfg := base()
		cfg.Provider.BaseURL = ""
		assert.ErrorContains(t, cfg.Validate(), "provider base URL")
	})

	t.Run("port collision", func(t *testing.T) {
		cfg := base()
		cfg.Server.HealthPort = cfg.Server.Port
		assert.ErrorContains(t, cfg.Validate(), "must be different")
	})

	t.Run("notify URL without secret", func(t *testing.T) {
		cfg := base()
		cfg.Notify.URL = "https://hooks.example.test/entitlements"
		assert.ErrorContains(t, cfg.Validate(), "notify secret")
	})

	t.Run("otel enabled without endpoint", func(t *testing.T) {
		cfg := base()
		cfg.Observability.OTelEnabled = true
		assert.ErrorContains(t, cfg.Validate(), "OpenTelemetry endpoint")
	})
}
