package tts

import (
	"context"
	"errors"
)

const (
	// DefaultVoiceID голос по умолчанию (Rachel)
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
	// DefaultModelID модель синтеза по умолчанию
	DefaultModelID = "eleven_monolingual_v1"

	// MaxAudioBytes ограничивает размер аудио, принимаемого от провайдера
	MaxAudioBytes = 50 * 1024 * 1024
)

// ErrTimeout возвращается, когда провайдер не ответил вовремя
var ErrTimeout = errors.New("таймаут запроса к провайдеру")

// Provider представляет интерфейс провайдера синтеза речи
type Provider interface {
	// ListVoices возвращает голоса в порядке, заданном провайдером
	ListVoices(ctx context.Context) ([]Voice, error)
	// Synthesize преобразует текст в аудио
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
}

// Voice описывает голос провайдера
type Voice struct {
	ID         string
	Name       string
	Category   string
	PreviewURL string
}

// SynthesisRequest запрос на синтез речи
type SynthesisRequest struct {
	Text    string
	VoiceID string
	ModelID string
}
