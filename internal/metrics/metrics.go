package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics содержит все метрики приложения
type Metrics struct {
	logger   *zap.Logger
	gatherer prometheus.Gatherer

	// Счетчики
	synthesisRequests *prometheus.CounterVec
	catalogRequests   *prometheus.CounterVec
	sttRequests       prometheus.Counter
	httpRequests      *prometheus.CounterVec

	// Гистограммы
	providerLatency *prometheus.HistogramVec
	audioSize       prometheus.Histogram
	httpDuration    *prometheus.HistogramVec
}

// New создает новый экземпляр метрик и регистрирует их в reg.
// Для отдельного реестра (например, в тестах) передайте prometheus.NewRegistry().
func New(logger *zap.Logger, reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		logger:   logger,
		gatherer: reg,

		synthesisRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tts_requests_total",
				Help: "Общее количество запросов на синтез речи",
			},
			[]string{"status"}, // success, failed, timeout, invalid
		),

		catalogRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voices_requests_total",
				Help: "Общее количество запросов списка голосов",
			},
			[]string{"status"}, // success, failed, timeout
		),

		sttRequests: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stt_requests_total",
				Help: "Общее количество загрузок для распознавания речи",
			},
		),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Общее количество HTTP запросов",
			},
			[]string{"method", "route", "code"},
		),

		// Время ответа провайдера
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_request_duration_seconds",
				Help:    "Время ответа провайдера в секундах",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"}, // synthesize, list_voices
		),

		audioSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tts_audio_bytes",
				Help:    "Размер синтезированного аудио в байтах",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Время обработки HTTP запроса в секундах",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	// Регистрируем все метрики
	reg.MustRegister(
		m.synthesisRequests,
		m.catalogRequests,
		m.sttRequests,
		m.httpRequests,
		m.providerLatency,
		m.audioSize,
		m.httpDuration,
	)

	return m
}

// RecordSynthesis записывает результат запроса синтеза
func (m *Metrics) RecordSynthesis(status string, audioBytes int) {
	m.synthesisRequests.WithLabelValues(status).Inc()
	if audioBytes > 0 {
		m.audioSize.Observe(float64(audioBytes))
	}
	m.logger.Debug("метрика синтеза обновлена", zap.String("status", status))
}

// RecordCatalog записывает результат запроса списка голосов
func (m *Metrics) RecordCatalog(status string) {
	m.catalogRequests.WithLabelValues(status).Inc()
}

// RecordTranscription записывает загрузку для распознавания
func (m *Metrics) RecordTranscription() {
	m.sttRequests.Inc()
}

// ObserveProvider добавляет наблюдение времени ответа провайдера
func (m *Metrics) ObserveProvider(operation string, d time.Duration) {
	m.providerLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveHTTP записывает обработанный HTTP запрос
func (m *Metrics) ObserveHTTP(method, route, code string, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler возвращает HTTP handler для метрик
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
