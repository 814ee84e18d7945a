package main

import (
	"context"
	"errors"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"matchday/internal/backend"
	"matchday/internal/cache"
	"matchday/internal/cli"
	"matchday/internal/history"
	applog "matchday/internal/log"
	"matchday/internal/services"
	"matchday/internal/telegram"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentTelegram)

	if cfg.TelegramBotToken == "" {
		logger.Error("TELEGRAM_BOT_TOKEN is required for the bot")
		os.Exit(1)
	}
	loc, _ := cfg.Location()

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

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Error("Failed to create Telegram bot", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Authorized on Telegram", "username", api.Self.UserName)

	bot := telegram.New(api, hist, telegram.Config{
		Pager: history.PagerConfig{
			Duration: cfg.HistoryTransition,
			Kickoff:  cfg.HistoryKickoff,
			Clock:    history.RealClock(),
		},
		Allowed: cfg.IsUserAllowed,
		Theme:   cfg.Theme,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func(context.Context) {
		api.StopReceivingUpdates()
		cacheManager.Stop()
		if err := result.Close(); err != nil {
			logger.Warn("Backend cleanup error", applog.FieldError, err)
		}
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	if err := bot.Run(ctx, api.GetUpdatesChan(u)); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Bot stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Bot stopped")
}
