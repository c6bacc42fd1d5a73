// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables
// with sensible defaults for all settings. The prefix is SUBENGINE_.
//
// # Configuration Structure
//
// Server settings:
//
//	SUBENGINE_HOST="0.0.0.0"
//	SUBENGINE_PORT="8080"
//	SUBENGINE_HEALTH_PORT="9090"
//	SUBENGINE_READ_TIMEOUT="15s"
//	SUBENGINE_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	SUBENGINE_POSTGRES_URL="postgres://localhost/registry"
//	SUBENGINE_POSTGRES_REPLICA_URLS="postgres://replica1/registry,postgres://replica2/registry"
//	SUBENGINE_POSTGRES_MAX_CONNS="20"
//
// Payment provider settings:
//
//	SUBENGINE_PROVIDER_BASE_URL="https://api.payments.example.com"
//	SUBENGINE_PROVIDER_API_KEY="sk_live_..."
//	SUBENGINE_PROVIDER_TIMEOUT="10s"
//
// Rate limiting settings:
//
//	SUBENGINE_REDIS_URL="localhost:6379"
//	SUBENGINE_WEBHOOK_RATE_LIMIT="120"
//
// Reconciliation settings:
//
//	SUBENGINE_RECONCILE_SCHEDULE="*/10 * * * *"
//	SUBENGINE_RECONCILE_MIN_AGE="15m"
//
// Observability settings:
//
//	SUBENGINE_LOG_LEVEL="info"  # debug, info, warn, error
//	SUBENGINE_OTEL_ENABLED="true"
//	SUBENGINE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// # Related Packages
//
//   - pkg/observability: uses observability configuration
//   - pkg/payments: uses provider configuration
package config
