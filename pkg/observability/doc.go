// Package observability provides structured logging, Prometheus metrics,
// health checks and OpenTelemetry tracing for the entitlement engine.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("account_id", accountID).Info("entitlement denied")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics(registry)
//	metrics.EntitlementDecisionsTotal.WithLabelValues("deny", "quota_exhausted").Inc()
//	metrics.PaymentEventsTotal.WithLabelValues("completed").Inc()
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # OpenTelemetry
//
// Initialize tracing:
//
//	provider, err := observability.InitTracing(ctx, cfg, logger)
//	defer provider.Shutdown(ctx)
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/api: request metrics middleware
package observability
