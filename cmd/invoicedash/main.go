package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"invoicedash/internal/amqp"
	"invoicedash/internal/backend"
	"invoicedash/internal/cache"
	"invoicedash/internal/chat"
	"invoicedash/internal/cli"
	apphttp "invoicedash/internal/http"
	"invoicedash/internal/log"
	"invoicedash/internal/services"
	"invoicedash/internal/worker"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
)

func main() {
	cli.LoadEnvFile()

	bootstrap := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, backendCfg.Type)
		os.Exit(1)
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()
	logger.Info("Backend initialized", log.FieldBackend, result.Type)

	var (
		dashboard  services.Dashboard = services.NewAnalytics(result.Backend)
		cached     *services.CachedAnalytics
		cacheStats func() cache.Stats
		manager    *cache.Manager
	)
	if cfg.CacheEnabled() {
		lru := cache.NewLRUCache[any](cfg.CacheSize, cfg.CacheTTL)
		manager = cache.NewManager()
		manager.Register(lru)
		manager.StartCleanup(cacheCleanupInterval)

		cached = services.NewCachedAnalytics(dashboard, lru)
		dashboard = cached
		cacheStats = lru.Stats
		logger.Info("Result cache enabled", "ttl", cfg.CacheTTL, "size", cfg.CacheSize)
	}

	chatClient := chat.NewHTTPClient(chat.Config{
		BaseURL: cfg.ChatServiceURL,
		APIKey:  cfg.ChatServiceAPIKey,
		Timeout: cfg.ChatTimeout,
	})

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Logger:             logger,
		Dashboard:          dashboard,
		Store:              result.Backend,
		Chat:               chatClient,
		CacheStats:         cacheStats,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() && cached != nil {
		amqpClient = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
	}

	ctx, done := cli.GracefulShutdown(logger.Logger, shutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if manager != nil {
			manager.Stop()
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
	})

	switch {
	case amqpClient != nil:
		invalidator := worker.NewInvalidator(cached, 0)
		amqpLogger := logger.WithComponent(log.ComponentAMQP)
		go func() {
			err := amqpClient.ConsumeWithReconnect(log.WithLogger(ctx, amqpLogger), invalidator.HandleDataChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				amqpLogger.Error("Data-changed consumer stopped", log.FieldError, err)
			}
		}()
		logger.Info("Listening for data-changed notifications", "exchange", cfg.AMQPExchange)
	case cfg.AMQPEnabled():
		logger.Info("AMQP configured but result cache disabled; notifications ignored")
	}

	if cached != nil {
		go func() {
			if err := cached.Warm(ctx); err != nil {
				logger.Warn("Initial cache warm-up failed", log.FieldError, err)
			}
		}()
	}

	logger.Info("Starting invoicedash server", "port", cfg.Port, log.FieldBackend, result.Type)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
