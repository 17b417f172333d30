package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"tts-bridge/internal/metrics"
	"tts-bridge/internal/tts"

	"go.uber.org/zap"
)

const (
	// AudioContentType тип содержимого, который отдает мост синтеза
	AudioContentType = "audio/mpeg"
	// AudioFileName имя файла в Content-Disposition
	AudioFileName = "tts_output.mp3"

	// STTPlaceholderMessage ответ заглушки распознавания речи
	STTPlaceholderMessage = "STT functionality will be implemented soon"
)

// Audio синтезированное аудио
type Audio struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Config параметры сервиса
type Config struct {
	ModelID        string
	DefaultVoiceID string
	Timeout        time.Duration
}

// Service связывает HTTP слой с провайдером синтеза речи
type Service struct {
	provider tts.Provider
	cfg      Config
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService создает новый сервис. Пустые поля cfg заменяются значениями по умолчанию.
func NewService(provider tts.Provider, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Service {
	if cfg.ModelID == "" {
		cfg.ModelID = tts.DefaultModelID
	}
	if cfg.DefaultVoiceID == "" {
		cfg.DefaultVoiceID = tts.DefaultVoiceID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Service{
		provider: provider,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Synthesize проверяет запрос и вызывает провайдера ровно один раз
func (s *Service) Synthesize(ctx context.Context, text, voiceID string) (*Audio, error) {
	if strings.TrimSpace(text) == "" {
		s.metrics.RecordSynthesis("invalid", 0)
		return nil, &ValidationError{Field: "text", Reason: "field required"}
	}
	if voiceID == "" {
		voiceID = s.cfg.DefaultVoiceID
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	data, err := s.provider.Synthesize(ctx, tts.SynthesisRequest{
		Text:    text,
		VoiceID: voiceID,
		ModelID: s.cfg.ModelID,
	})
	s.metrics.ObserveProvider("synthesize", time.Since(start))

	if err != nil {
		s.logger.Error("ошибка синтеза речи",
			zap.String("voice_id", voiceID),
			zap.Error(err))

		if isTimeout(ctx, err) {
			s.metrics.RecordSynthesis("timeout", 0)
			return nil, &ProviderTimeout{Op: "synthesize", Err: err}
		}
		s.metrics.RecordSynthesis("failed", 0)
		return nil, &SynthesisError{Err: err}
	}
	if len(data) == 0 {
		s.metrics.RecordSynthesis("failed", 0)
		return nil, &SynthesisError{Err: fmt.Errorf("провайдер вернул пустое аудио")}
	}

	s.metrics.RecordSynthesis("success", len(data))
	s.logger.Info("речь синтезирована",
		zap.String("voice_id", voiceID),
		zap.Int("text_length", len(text)),
		zap.Int("audio_size", len(data)))

	return &Audio{
		Data:        data,
		ContentType: AudioContentType,
		FileName:    AudioFileName,
	}, nil
}

// ListVoices возвращает каталог голосов в порядке провайдера
func (s *Service) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	voices, err := s.provider.ListVoices(ctx)
	s.metrics.ObserveProvider("list_voices", time.Since(start))

	if err != nil {
		s.logger.Error("ошибка получения списка голосов", zap.Error(err))

		if isTimeout(ctx, err) {
			s.metrics.RecordCatalog("timeout")
			return nil, &ProviderTimeout{Op: "list_voices", Err: err}
		}
		s.metrics.RecordCatalog("failed")
		return nil, &CatalogError{Err: err}
	}

	s.metrics.RecordCatalog("success")
	return voices, nil
}

// Transcribe заглушка распознавания речи. Загруженный файл сохраняется во
// временный файл, который удаляется при любом исходе.
func (s *Service) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "stt-*.wav")
	if err != nil {
		return "", &IOError{Err: fmt.Errorf("ошибка создания временного файла: %w", err)}
	}
	defer func() {
		tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("не удалось удалить временный файл",
				zap.String("path", tmp.Name()),
				zap.Error(err))
		}
	}()

	size, err := io.Copy(tmp, audio)
	if err != nil {
		return "", &IOError{Err: fmt.Errorf("ошибка сохранения загруженного файла: %w", err)}
	}

	s.metrics.RecordTranscription()
	s.logger.Info("получен файл для распознавания",
		zap.String("filename", filename),
		zap.Int64("size", size))

	return STTPlaceholderMessage, nil
}

func isTimeout(ctx context.Context, err error) bool {
	return errors.Is(err, tts.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded)
}
