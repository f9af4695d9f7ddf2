package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cortexstack/connector-gateway/internal/auth"
	"github.com/cortexstack/connector-gateway/internal/config"
	"github.com/cortexstack/connector-gateway/internal/dispatch"
	"github.com/cortexstack/connector-gateway/internal/handlers"
	"github.com/cortexstack/connector-gateway/internal/logger"
	"github.com/cortexstack/connector-gateway/internal/metrics"
	"github.com/cortexstack/connector-gateway/internal/registry"
	"github.com/cortexstack/connector-gateway/internal/router"
)

func main() {

	// Load application configuration
	cfg := config.New()

	logger.Init(cfg.LogLevel)
	logger.Info("Configuration loaded successfully")

	// Metrics registry
	metricsRegistry := metrics.New()

	// Dispatch pool for async connector calls
	pool := dispatch.NewPool(5, 100)
	logger.Info("Dispatch pool created with 5 workers")

	// Connector registry; a broken manifest is retained as state so
	// health stays up and service-map answers 503
	reg := registry.New(cfg.ManifestPath, cfg.SigningSecret, registry.Options{
		UpstreamTimeout: cfg.UpstreamTimeout,
		UpstreamRetries: cfg.UpstreamRetries,
		Pool:            pool,
		Metrics:         metricsRegistry,
	})
	if !reg.Available() {
		logger.Warn("Starting with unavailable connector manifest; service-map will answer 503")
	}

	// Authenticator: JWT verifier takes precedence when configured,
	// static API key otherwise
	authenticator := auth.New(cfg.APIKey, cfg.JWTSecret, cfg.NoAuth)
	if cfg.NoAuth {
		logger.Warn("Authentication disabled (GATEWAY_NO_AUTH=true)")
	}

	// Initialize handlers
	h := router.Handlers{
		Health:     handlers.NewHealthHandler(),
		ServiceMap: handlers.NewServiceMapHandler(reg, metricsRegistry),
		Stream:     handlers.NewStreamHandler(reg, metricsRegistry, cfg.SSEInterval, cfg.SSEMaxEvents),
		Invoke:     handlers.NewInvokeHandler(reg, metricsRegistry),
		Metrics:    handlers.NewMetricsHandler(metricsRegistry, cfg.MetricsEnabled),
	}
	logger.Info("Handlers initialized")

	// Setup router
	r := router.Setup(cfg, authenticator, h)

	// Setup graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutting down gateway gracefully...")

		pool.Stop()
		logger.Info("Dispatch pool drained")

		os.Exit(0)
	}()

	// Start server
	logger.Infof("Starting connector gateway on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
