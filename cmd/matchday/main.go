package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"matchday/internal/amqp"
	"matchday/internal/backend"
	"matchday/internal/cache"
	"matchday/internal/cli"
	apphttp "matchday/internal/http"
	applog "matchday/internal/log"
	"matchday/internal/services"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)

	loc, _ := cfg.Location() // checked by Validate

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	hist, cleaner := services.NewHistoryService(result.Backend, result.Backend, services.HistoryConfig{
		Location: loc,
		PageSize: cfg.HistoryPageSize,
		CacheTTL: cfg.HistoryCacheTTL,
	}, logger)

	cacheManager := cache.NewManager(logger)
	if cleaner != nil {
		cacheManager.Register(cleaner)
		cacheManager.StartCleanup(cfg.HistoryCacheTTL)
	}

	// Optional broker for announcing ingested matches
	var (
		publisher  services.Publisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		publisher = amqpClient
	}

	var ingest *services.IngestService
	if result.Writer != nil || publisher != nil {
		ingest = services.NewIngestService(result.Writer, publisher, logger)
		ingest.OnIngest(hist.Invalidate)
	}

	// already checked by Validate
	proxies, _ := cfg.TrustedProxyPrefixes()

	opts := apphttp.Options{
		History:            hist,
		Ingest:             ingest,
		Theme:              cfg.Theme,
		ImageProxyURL:      cfg.ImageProxyURL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     proxies,
		TelegramBotToken:   cfg.TelegramBotToken,
		TelegramAuthMaxAge: cfg.TelegramAuthMaxAge,
		AllowUser:          cfg.IsUserAllowed,
		WebhookToken:       cfg.BookingAPIToken,
		Logger:             logger,
	}
	if p, ok := result.Backend.(pinger); ok {
		opts.Ready = p.Ping
	}
	srv := apphttp.NewServer(":"+cfg.Port, opts)
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if err := result.Close(); err != nil {
			logger.Warn("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting matchday server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"timezone", loc.String(),
		"page_size", cfg.HistoryPageSize,
		"webhook", ingest != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
