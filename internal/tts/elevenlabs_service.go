package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// APIError ответ провайдера с неуспешным статусом
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ElevenLabs вернул ошибку %d: %s", e.StatusCode, e.Message)
}

// ElevenLabsService предоставляет функциональность Text-to-Speech через ElevenLabs API
type ElevenLabsService struct {
	logger     *zap.Logger
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabsService создает новый ElevenLabs сервис.
// Ключ передается явно, глобального состояния нет.
func NewElevenLabsService(logger *zap.Logger, apiKey, baseURL string, timeout time.Duration) *ElevenLabsService {
	return &ElevenLabsService{
		logger:  logger,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type voicesResponse struct {
	Voices []struct {
		VoiceID    string `json:"voice_id"`
		Name       string `json:"name"`
		Category   string `json:"category"`
		PreviewURL string `json:"preview_url"`
	} `json:"voices"`
}

type synthesizeBody struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// ListVoices получает список голосов аккаунта
func (s *ElevenLabsService) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("ошибка парсинга списка голосов: %w", err)
	}

	voices := make([]Voice, 0, len(payload.Voices))
	for _, v := range payload.Voices {
		voices = append(voices, Voice{
			ID:         v.VoiceID,
			Name:       v.Name,
			Category:   v.Category,
			PreviewURL: v.PreviewURL,
		})
	}

	s.logger.Debug("получен список голосов", zap.Int("count", len(voices)))

	return voices, nil
}

// Synthesize преобразует текст в аудио (audio/mpeg)
func (s *ElevenLabsService) Synthesize(ctx context.Context, in SynthesisRequest) ([]byte, error) {
	if in.VoiceID == "" {
		in.VoiceID = DefaultVoiceID
	}
	if in.ModelID == "" {
		in.ModelID = DefaultModelID
	}

	body, err := json.Marshal(synthesizeBody{Text: in.Text, ModelID: in.ModelID})
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", s.baseURL, url.PathEscape(in.VoiceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	s.logger.Info("🎵 генерируем аудио через ElevenLabs",
		zap.String("voice_id", in.VoiceID),
		zap.String("model_id", in.ModelID),
		zap.Int("text_length", len(in.Text)))

	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audioData, err := io.ReadAll(io.LimitReader(resp.Body, MaxAudioBytes+1))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, fmt.Errorf("ошибка чтения аудио данных: %w", err)
	}
	if len(audioData) > MaxAudioBytes {
		return nil, fmt.Errorf("аудио превышает допустимый размер %d байт", MaxAudioBytes)
	}

	s.logger.Info("🎵 аудио успешно сгенерировано",
		zap.String("voice_id", in.VoiceID),
		zap.Int("audio_size", len(audioData)))

	return audioData, nil
}

// do выполняет запрос и превращает неуспешный статус в APIError
func (s *ElevenLabsService) do(req *http.Request) (*http.Response, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
		}
	}

	return resp, nil
}

// errorMessage достает текст ошибки из ответа ElevenLabs.
// Поддерживаются {"detail":{"message":..}}, {"detail":".."} и произвольное тело.
func errorMessage(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var detail struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Detail, &detail) == nil && detail.Message != "" {
			return detail.Message
		}
		var text string
		if json.Unmarshal(envelope.Detail, &text) == nil && text != "" {
			return text
		}
		return string(envelope.Detail)
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "пустой ответ"
	}
	return msg
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
