package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tts-bridge/internal/bot"
	"tts-bridge/internal/config"
	"tts-bridge/internal/frontend"
	"tts-bridge/internal/scheduler"
	"tts-bridge/internal/server"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Синтез может занимать до таймаута провайдера, берем с запасом
const apiTimeout = 2 * time.Minute

func main() {
	cfg, err := config.LoadFrontend()
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(&cfg.App)
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("запуск веб-интерфейса TTS",
		zap.String("api_url", cfg.Frontend.APIURL),
		zap.String("output_dir", cfg.Frontend.OutputDir),
		zap.Bool("telegram", cfg.TelegramEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := frontend.NewClient(cfg.Frontend.APIURL, apiTimeout, logger)

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := client.HealthCheck(healthCtx); err != nil {
		// API может подняться позже фронтенда
		logger.Warn("API недоступен при старте", zap.Error(err))
	}
	cancel()

	store := frontend.NewOutputStore(cfg.Frontend.OutputDir, logger)
	ui := frontend.NewUI(client, store, logger)
	router := ui.Router(server.RequestID, server.Logger(logger, nil))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Serve(ctx, cfg.Frontend.Addr(), router, logger)
	})

	if cfg.TelegramEnabled() {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Fatal("ошибка инициализации Telegram бота", zap.Error(err))
		}

		logger.Info("Telegram бот инициализирован",
			zap.String("username", botAPI.Self.UserName),
			zap.Int64("id", botAPI.Self.ID))

		handler := bot.NewHandler(botAPI, client, store, logger)

		g.Go(func() error {
			updateConfig := tgbotapi.NewUpdate(0)
			updateConfig.Timeout = 60

			updates := botAPI.GetUpdatesChan(updateConfig)
			handler.Listen(ctx, updates)
			botAPI.StopReceivingUpdates()
			return nil
		})
	}

	if cfg.Frontend.Retention > 0 {
		taskScheduler := scheduler.NewScheduler(logger)
		taskScheduler.AddJob(scheduler.NewRetentionJob(store, cfg.Frontend.Retention, false, logger))

		interval := cfg.Frontend.Retention / 4
		if interval < time.Minute {
			interval = time.Minute
		}

		g.Go(func() error {
			taskScheduler.Start(ctx, interval)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal("ошибка работы фронтенда", zap.Error(err))
	}

	logger.Info("фронтенд завершен")
}

// initLogger инициализирует логгер
func initLogger(app *config.AppConfig) (*zap.Logger, error) {
	zapConfig := zap.NewDevelopmentConfig()
	if app.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = app.GetLogLevel()

	return zapConfig.Build()
}
