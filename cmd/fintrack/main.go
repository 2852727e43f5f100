package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, res := cli.InitSnapshotStore(startCtx, logger, cfg)
	defer res.Close()
	logger.Info("Storage backend initialized", log.FieldBackend, cfg.DataBackend, log.FieldStorageKey, store.Key())

	m := metrics.New()
	opts := []services.Option{
		services.WithLogger(logger),
		services.WithMetrics(m),
		services.WithReportCache(cfg.ReportCacheTTL),
	}

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Events are best effort; the ledger keeps working without them.
			logger.Error("Failed to initialize AMQP client, events disabled", log.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(amqpClient))
			logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange)
		}
	}

	engine := report.NewEngine(core.SystemClock{Location: cfg.Location()}, cfg.Location())
	ledger := services.NewFinanceService(store, engine, opts...)
	if err := ledger.Load(startCtx); err != nil {
		cancelStart()
		logger.Error("Failed to load ledger", log.FieldError, err)
		os.Exit(1)
	}
	cancelStart()

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())
	if rc := ledger.ReportCache(); rc != nil {
		caches.Register("reports", rc)
		caches.StartCleanup(10 * time.Minute)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Ledger:             ledger,
		Logger:             logger,
		Metrics:            m,
		Location:           cfg.Location(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              store.Ping,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"timezone", cfg.Location().String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
