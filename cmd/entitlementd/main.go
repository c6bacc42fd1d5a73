package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/api"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/config"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/entitlement"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/events"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/ledger"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/listings"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/middleware"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/payments"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/reconcile"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/storage/postgres"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/subscription"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting entitlement engine")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize tracing, continuing without it")
	}

	connections, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
		PrimaryURL:  cfg.Database.URL,
		ReplicaURLs: cfg.Database.ReplicaURLs,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}
	defer connections.Close()

	if err := postgres.EnsureSchema(ctx, connections.Primary()); err != nil {
		logger.WithError(err).Error("failed to apply schema")
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Domain wiring. Writes go to the primary; the usage count and history
	// reads can take a replica.
	subs := subscription.NewPostgresStore(connections.Primary())
	counts := listings.NewPostgresCounter(connections.Replica(), logger)
	entries := ledger.NewPostgresStore(connections.Primary())
	evaluator := entitlement.NewEvaluator(subs, counts, logger, metrics)

	publisher := events.Publisher(events.NopPublisher{})
	if cfg.Notify.URL != "" {
		publisher = events.NewHTTPPublisher(cfg.Notify.URL, cfg.Notify.Secret, cfg.Notify.Timeout)
	}
	dispatcher := events.NewDispatcher(publisher, logger, cfg.Notify.Timeout+5*time.Second)

	provider := payments.NewHTTPProviderClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout, metrics)
	processor := payments.NewProcessor(connections.Primary(), subs, entries, provider, dispatcher, logger, metrics)

	// Webhook rate limiting: distributed when Redis is configured,
	// in-process otherwise. Either way the limiter fails open.
	rateLimitConfig := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		WindowDuration:    cfg.RateLimit.WindowDuration,
	}
	var limiter middleware.Limiter = middleware.NewLocalRateLimiter(rateLimitConfig)
	var redisClient *redis.Client
	if cfg.RateLimit.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisURL,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		defer redisClient.Close()
		limiter = middleware.NewDistributedRateLimiter(redisClient, rateLimitConfig, "ratelimit:webhook", logger)
	}

	server := api.NewServer(evaluator, processor, entries, logger)
	server.BillingRouter().Use(middleware.RateLimit(limiter, rateLimitConfig))

	var handler http.Handler = server
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogger(logger)(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = otelhttp.NewHandler(handler, "entitlement-api")

	apiServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for probes.
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(connections.Primary(), redisClient))
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.Handler(registry))
	}
	healthServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	sweeper := reconcile.NewSweeper(entries, processor, reconcile.Config{
		Schedule: cfg.Reconcile.Schedule,
		MinAge:   cfg.Reconcile.MinAge,
		Limit:    cfg.Reconcile.Limit,
	}, logger, metrics)
	if cfg.Reconcile.Schedule != "" {
		if err := sweeper.Start(); err != nil {
			logger.WithError(err).Error("failed to start reconciliation sweeper")
			os.Exit(1)
		}
		defer sweeper.Stop()
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		logger.Infof("health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api server shutdown was not clean")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("health server shutdown was not clean")
		}
		if tracing != nil {
			if err := tracing.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("tracer shutdown was not clean")
			}
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
