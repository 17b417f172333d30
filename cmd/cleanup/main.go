package main

import (
	"flag"
	"log"
	"time"

	"tts-bridge/internal/config"
	"tts-bridge/internal/frontend"

	"go.uber.org/zap"
)

func main() {
	var (
		dir       = flag.String("dir", "", "Каталог с сохраненным аудио (по умолчанию OUTPUT_DIR)")
		olderThan = flag.Duration("older-than", 24*time.Hour, "Удалять файлы старше указанного срока")
		dryRun    = flag.Bool("dry-run", false, "Показать что будет удалено без фактического удаления")
	)
	flag.Parse()

	// Инициализация логгера
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Ошибка инициализации логгера:", err)
	}
	defer logger.Sync()

	if *olderThan <= 0 {
		logger.Fatal("Срок хранения должен быть положительным", zap.Duration("older_than", *olderThan))
	}

	if *dir == "" {
		cfg, err := config.LoadFrontend()
		if err != nil {
			logger.Fatal("Ошибка загрузки конфигурации", zap.Error(err))
		}
		*dir = cfg.Frontend.OutputDir
	}

	store := frontend.NewOutputStore(*dir, logger)

	removed, err := store.Prune(*olderThan, *dryRun)
	for _, f := range removed {
		if *dryRun {
			logger.Info("DRY RUN: Будет удален файл",
				zap.String("file", f.Name),
				zap.Int64("size", f.Size),
				zap.Time("created_at", f.CreatedAt))
			continue
		}
		logger.Info("Удален файл",
			zap.String("file", f.Name),
			zap.Int64("size", f.Size))
	}
	if err != nil {
		logger.Fatal("Ошибка очистки каталога", zap.String("dir", *dir), zap.Error(err))
	}

	logger.Info("Очистка каталога завершена успешно",
		zap.String("dir", *dir),
		zap.Int("files", len(removed)),
		zap.Bool("dry_run", *dryRun))
}
