package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tts-bridge/internal/config"
	"tts-bridge/internal/metrics"
	"tts-bridge/internal/server"
	"tts-bridge/internal/speech"
	"tts-bridge/internal/tts"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	logger, err := initLogger(&cfg.App)
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("запуск TTS API",
		zap.String("env", cfg.App.Env),
		zap.String("provider_url", cfg.ElevenLabs.BaseURL),
		zap.String("model", cfg.ElevenLabs.ModelID))

	// Инициализация метрик
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsSystem := metrics.New(logger, registry)

	// Инициализация клиента ElevenLabs
	provider := tts.NewElevenLabsService(logger, cfg.ElevenLabs.APIKey, cfg.ElevenLabs.BaseURL, cfg.ElevenLabs.Timeout)

	speechService := speech.NewService(provider, speech.Config{
		ModelID:        cfg.ElevenLabs.ModelID,
		DefaultVoiceID: cfg.ElevenLabs.DefaultVoiceID,
		Timeout:        cfg.ElevenLabs.Timeout,
	}, metricsSystem, logger)

	router := server.New(speechService, metricsSystem, logger).Router()

	// Обработка сигналов для graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx, cfg.Server.Addr(), router, logger); err != nil {
		logger.Fatal("ошибка HTTP сервера", zap.Error(err))
	}

	logger.Info("приложение завершено")
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
