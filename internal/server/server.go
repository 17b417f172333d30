package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tts-bridge/internal/metrics"
	"tts-bridge/internal/speech"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const (
	// MaxJSONBodySize ограничение на тело JSON запроса
	MaxJSONBodySize = 1 << 20
	// MaxUploadSize ограничение на загружаемый аудио файл
	MaxUploadSize = 25 * 1024 * 1024

	welcomeMessage = "Welcome to TTS/STT API Service"
)

// Server HTTP API моста синтеза речи
type Server struct {
	speech  *speech.Service
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New создает новый сервер
func New(speechService *speech.Service, m *metrics.Metrics, logger *zap.Logger) *Server {
	return &Server{
		speech:  speechService,
		metrics: m,
		logger:  logger,
	}
}

// Router собирает маршруты API
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(Logger(s.logger, s.metrics))

	healthHandler := metrics.NewHandler(s.metrics, "tts-bridge", s.logger)

	r.Get("/", s.handleRoot)
	r.Get("/voices", s.handleVoices)
	r.Post("/tts", s.handleTTS)
	r.Post("/stt", s.handleSTT)
	r.Get("/health", healthHandler.HealthHandler)
	r.Method(http.MethodGet, "/metrics", healthHandler.MetricsHandler())

	return r
}

// Serve запускает HTTP сервер и останавливает его при отмене ctx
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP сервер запущен", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown HTTP сервера
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ошибка при остановке HTTP сервера", zap.Error(err))
		return err
	}

	logger.Info("HTTP сервер остановлен", zap.String("address", addr))
	return nil
}
