package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config содержит все конфигурационные параметры приложения
type Config struct {
	ElevenLabs ElevenLabsConfig
	Server     ServerConfig
	Frontend   FrontendConfig
	Telegram   TelegramConfig
	App        AppConfig
}

// ElevenLabsConfig содержит настройки провайдера синтеза речи
type ElevenLabsConfig struct {
	APIKey         string
	BaseURL        string
	ModelID        string
	DefaultVoiceID string
	Timeout        time.Duration
}

// ServerConfig содержит настройки HTTP API
type ServerConfig struct {
	Host string
	Port int
}

// FrontendConfig содержит настройки веб-интерфейса и локального хранилища аудио
type FrontendConfig struct {
	APIURL    string
	Host      string
	Port      int
	OutputDir string
	Retention time.Duration
}

type TelegramConfig struct {
	BotToken string
}

type AppConfig struct {
	Env      string
	LogLevel string
}

// Load загружает конфигурацию API сервиса из переменных окружения и .env
func Load() (*Config, error) {
	cfg := load()

	if err := validateAPI(cfg); err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return cfg, nil
}

// LoadFrontend загружает конфигурацию веб-интерфейса и Telegram бота.
// Ключ провайдера фронтенду не нужен.
func LoadFrontend() (*Config, error) {
	cfg := load()

	if err := validateFrontend(cfg); err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return cfg, nil
}

func load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	// ElevenLabs
	cfg.ElevenLabs.APIKey = os.Getenv("ELEVENLABS_API_KEY")
	cfg.ElevenLabs.BaseURL = getEnvDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io")
	cfg.ElevenLabs.ModelID = getEnvDefault("ELEVENLABS_MODEL_ID", "eleven_monolingual_v1")
	cfg.ElevenLabs.DefaultVoiceID = getEnvDefault("ELEVENLABS_DEFAULT_VOICE_ID", "21m00Tcm4TlvDq8ikWAM")
	cfg.ElevenLabs.Timeout = getEnvDurationDefault("PROVIDER_TIMEOUT", 30*time.Second)

	// Server
	cfg.Server.Host = getEnvDefault("APP_HOST", "0.0.0.0")
	cfg.Server.Port = getEnvIntDefault("APP_PORT", 8000)

	// Frontend
	cfg.Frontend.APIURL = getEnvDefault("API_URL", "http://api:8000")
	cfg.Frontend.Host = getEnvDefault("FRONTEND_HOST", "0.0.0.0")
	cfg.Frontend.Port = getEnvIntDefault("FRONTEND_PORT", 8501)
	cfg.Frontend.OutputDir = getEnvDefault("OUTPUT_DIR", "output")
	cfg.Frontend.Retention = getEnvDurationDefault("OUTPUT_RETENTION", 0)

	// Telegram
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	// App
	cfg.App.Env = getEnvDefault("APP_ENV", "development")
	cfg.App.LogLevel = getEnvDefault("LOG_LEVEL", "info")

	return cfg
}

func getEnvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// validateAPI проверяет корректность конфигурации API сервиса
func validateAPI(config *Config) error {
	if config.ElevenLabs.APIKey == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY не установлен")
	}
	if config.ElevenLabs.BaseURL == "" {
		return fmt.Errorf("ELEVENLABS_BASE_URL не установлен")
	}
	if config.ElevenLabs.Timeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT должен быть положительным")
	}
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("некорректный APP_PORT: %d", config.Server.Port)
	}
	return nil
}

// validateFrontend проверяет корректность конфигурации фронтенда
func validateFrontend(config *Config) error {
	if config.Frontend.APIURL == "" {
		return fmt.Errorf("API_URL не установлен")
	}
	if config.Frontend.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR не установлен")
	}
	if config.Frontend.Port <= 0 || config.Frontend.Port > 65535 {
		return fmt.Errorf("некорректный FRONTEND_PORT: %d", config.Frontend.Port)
	}
	if config.Frontend.Retention < 0 {
		return fmt.Errorf("OUTPUT_RETENTION не может быть отрицательным")
	}
	return nil
}

// Addr возвращает адрес, на котором слушает API
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Addr возвращает адрес, на котором слушает веб-интерфейс
func (c *FrontendConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TelegramEnabled сообщает, нужно ли запускать Telegram бота
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != ""
}

// IsDevelopment проверяет, запущено ли приложение в режиме разработки
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction проверяет, запущено ли приложение в продакшн режиме
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// GetLogLevel возвращает уровень логирования в формате zap
func (c *AppConfig) GetLogLevel() zap.AtomicLevel {
	switch c.LogLevel {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}
