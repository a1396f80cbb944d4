package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"capigastos/internal/amqp"
	"capigastos/internal/backend"
	"capigastos/internal/cache"
	"capigastos/internal/cli"
	apphttp "capigastos/internal/http"
	"capigastos/internal/log"
	"capigastos/internal/services"
	"capigastos/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	bootstrap := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}

	opts := services.Options{
		TransactionsTTL: cfg.TransactionsTTL,
		ReferenceTTL:    cfg.ReferenceTTL,
		Users:           cfg.Users,
		Location:        cfg.Location(),
		Logger:          logger,
	}

	// Change notifications are optional; without them the cache TTL bounds
	// how stale another instance's writes can look.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		opts.Publisher = amqpClient
		logger.Info("Change notifications enabled", "exchange", cfg.AMQPExchange, "origin", amqpClient.Origin())
	}

	ledger := services.NewLedgerService(store.Store, opts)

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(ledger.Caches())
	cacheManager.StartCleanup(cfg.ReferenceTTL)

	srv := apphttp.NewServer(":"+cfg.Port, ledger, apphttp.Options{
		Logger:            logger,
		Location:          cfg.Location(),
		RequestsPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:    cfg.TrustedProxies,
		StoreStats:        store.Stats,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err.Error())
			}
		}
		if err := store.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err.Error())
		}
	})

	changes := worker.NewChangeWorker(ledger, logger)
	go func() {
		if _, err := changes.StartupCheck(ctx); err != nil {
			logger.Warn("Startup ledger check failed", log.FieldError, err.Error())
		}
	}()
	go changes.PeriodicCheck(ctx, time.Hour)
	if amqpClient != nil {
		go func() {
			if err := changes.Run(ctx, amqpClient); err != nil {
				logger.Error("Change consumption stopped", log.FieldError, err.Error())
			}
		}()
	}

	logger.Info("Starting capigastos server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"users", cfg.Users,
		"timezone", cfg.Timezone)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
