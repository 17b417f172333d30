package scheduler

import (
	"context"
	"fmt"
	"time"

	"tts-bridge/internal/frontend"

	"go.uber.org/zap"
)

// RetentionJob удаляет сохраненное аудио старше заданного срока
type RetentionJob struct {
	store     *frontend.OutputStore
	retention time.Duration
	dryRun    bool
	logger    *zap.Logger
}

// NewRetentionJob создает джобу очистки каталога с аудио
func NewRetentionJob(store *frontend.OutputStore, retention time.Duration, dryRun bool, logger *zap.Logger) *RetentionJob {
	return &RetentionJob{
		store:     store,
		retention: retention,
		dryRun:    dryRun,
		logger:    logger,
	}
}

func (j *RetentionJob) Name() string { return "output_retention" }

// Run удаляет устаревшие файлы
func (j *RetentionJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	removed, err := j.store.Prune(j.retention, j.dryRun)
	if err != nil {
		return fmt.Errorf("ошибка очистки каталога %s: %w", j.store.Dir(), err)
	}

	var bytes int64
	for _, f := range removed {
		bytes += f.Size
		j.logger.Debug("устаревшее аудио",
			zap.String("file", f.Name),
			zap.Time("created_at", f.CreatedAt),
			zap.Bool("dry_run", j.dryRun))
	}

	j.logger.Info("очистка каталога с аудио завершена",
		zap.String("dir", j.store.Dir()),
		zap.Duration("retention", j.retention),
		zap.Int("files", len(removed)),
		zap.Int64("bytes", bytes),
		zap.Bool("dry_run", j.dryRun))

	return nil
}
