package bot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"tts-bridge/internal/frontend"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	// Лимиты безопасности
	MaxFileSize   = 25 * 1024 * 1024 // 25MB максимум для аудио файлов
	MaxTextLength = 4000             // Максимальная длина текста сообщения

	voiceCallbackPrefix = "voice:"
)

// Sender подмножество методов tgbotapi.BotAPI, которые использует обработчик
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Handler представляет обработчик сообщений Telegram
type Handler struct {
	bot        Sender
	api        frontend.SpeechAPI
	store      *frontend.OutputStore
	httpClient *http.Client
	logger     *zap.Logger

	maxFileSize int

	mu         sync.RWMutex
	selected   map[int64]string  // выбранный голос для каждого чата
	voiceNames map[string]string // id -> имя из последнего списка голосов
}

// NewHandler создает новый обработчик
func NewHandler(bot Sender, api frontend.SpeechAPI, store *frontend.OutputStore, logger *zap.Logger) *Handler {
	return &Handler{
		bot:   bot,
		api:   api,
		store: store,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger:      logger,
		maxFileSize: MaxFileSize,
		selected:    make(map[int64]string),
		voiceNames:  make(map[string]string),
	}
}

// Listen обрабатывает обновления до отмены ctx и дожидается
// завершения уже запущенных обработчиков
func (h *Handler) Listen(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			// Пропускаем пустые обновления
			if update.Message == nil && update.CallbackQuery == nil {
				continue
			}

			// Обрабатываем обновление в горутине
			wg.Add(1)
			go func(update tgbotapi.Update) {
				defer wg.Done()
				if err := h.HandleUpdate(ctx, update); err != nil {
					h.logger.Error("ошибка обработки обновления", zap.Error(err))
				}
			}(update)

		case <-ctx.Done():
			h.logger.Info("остановка обработки обновлений, ожидаем активные обработчики")
			return
		}
	}
}

// HandleUpdate обрабатывает одно обновление
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallbackQuery(ctx, update.CallbackQuery)
	}

	message := update.Message
	if message == nil || message.Chat == nil {
		return nil
	}

	switch {
	case message.IsCommand():
		return h.handleCommand(ctx, message)
	case message.Voice != nil:
		return h.handleAudioUpload(ctx, message, message.Voice.FileID, "voice.ogg", message.Voice.FileSize)
	case message.Audio != nil:
		return h.handleAudioUpload(ctx, message, message.Audio.FileID, message.Audio.FileName, message.Audio.FileSize)
	case message.Document != nil:
		return h.handleAudioUpload(ctx, message, message.Document.FileID, message.Document.FileName, message.Document.FileSize)
	case message.Text != "":
		return h.handleText(ctx, message)
	}

	return nil
}

func (h *Handler) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	switch message.Command() {
	case "start", "help":
		return h.sendMessage(message.Chat.ID, startText)
	case "voices":
		return h.handleVoicesCommand(ctx, message.Chat.ID)
	default:
		return h.sendMessage(message.Chat.ID, "Unknown command. Use /voices to pick a voice or just send text.")
	}
}

// handleVoicesCommand показывает голоса inline клавиатурой
func (h *Handler) handleVoicesCommand(ctx context.Context, chatID int64) error {
	voices, err := h.api.Voices(ctx)
	if err != nil {
		h.logger.Error("ошибка получения списка голосов", zap.Error(err))
		return h.sendMessage(chatID, "⚠️ Error fetching voices: "+frontend.ErrorDetail(err))
	}
	if len(voices) == 0 {
		return h.sendMessage(chatID, "⚠️ No voices available")
	}

	h.mu.Lock()
	for _, v := range voices {
		h.voiceNames[v.ID] = v.Name
	}
	h.mu.Unlock()

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(voices))
	for _, v := range voices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(v.Name, voiceCallbackPrefix+v.ID),
		))
	}

	msg := tgbotapi.NewMessage(chatID, "Select Voice")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("ошибка отправки списка голосов", zap.Int64("chat_id", chatID), zap.Error(err))
		return err
	}
	return nil
}

// handleCallbackQuery обрабатывает inline кнопки
func (h *Handler) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if !strings.HasPrefix(callback.Data, voiceCallbackPrefix) || callback.Message == nil || callback.Message.Chat == nil {
		h.bot.Request(tgbotapi.NewCallback(callback.ID, ""))
		return nil
	}

	voiceID := strings.TrimPrefix(callback.Data, voiceCallbackPrefix)
	chatID := callback.Message.Chat.ID

	h.mu.Lock()
	h.selected[chatID] = voiceID
	name := h.voiceNames[voiceID]
	h.mu.Unlock()
	if name == "" {
		name = voiceID
	}

	h.logger.Info("выбран голос", zap.Int64("chat_id", chatID), zap.String("voice_id", voiceID))

	if _, err := h.bot.Request(tgbotapi.NewCallback(callback.ID, "✅ "+name)); err != nil {
		h.logger.Warn("ошибка ответа на callback", zap.Error(err))
	}
	return h.sendMessage(chatID, "Voice selected: "+name+". Send me text to convert to speech.")
}

// handleText синтезирует речь, сохраняет файл и отправляет аудио
func (h *Handler) handleText(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	text := sanitizeText(message.Text)
	if text == "" {
		return h.sendMessage(chatID, "⚠️ Please enter text and select a voice")
	}

	voiceID := h.SelectedVoice(chatID)

	audio, err := h.api.Synthesize(ctx, text, voiceID)
	if err != nil {
		h.logger.Error("ошибка генерации TTS", zap.Int64("chat_id", chatID), zap.Error(err))
		return h.sendMessage(chatID, "⚠️ Error in TTS conversion: "+frontend.ErrorDetail(err))
	}

	saved, err := h.store.Save(audio)
	if err != nil {
		h.logger.Error("ошибка сохранения аудио", zap.Error(err))
		return h.sendMessage(chatID, "⚠️ Error saving audio: "+err.Error())
	}

	msg := tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{
		Name:  saved.Name,
		Bytes: audio,
	})
	msg.Caption = "🔊 " + truncate(text, 200)

	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("ошибка отправки аудио", zap.Error(err))
		return err
	}

	h.logger.Info("TTS аудио отправлено",
		zap.Int64("chat_id", chatID),
		zap.String("file", saved.Name))
	return nil
}

// handleAudioUpload скачивает файл из Telegram и отправляет его на распознавание
func (h *Handler) handleAudioUpload(ctx context.Context, message *tgbotapi.Message, fileID, filename string, size int) error {
	chatID := message.Chat.ID

	if size > h.maxFileSize {
		return h.sendMessage(chatID, "⚠️ File is too large")
	}
	if filename == "" {
		filename = "audio.wav"
	}

	fileURL, err := h.bot.GetFileDirectURL(fileID)
	if err != nil {
		h.logger.Error("ошибка получения ссылки на файл", zap.Error(err))
		return h.sendMessage(chatID, "⚠️ Error downloading file: "+err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Error("ошибка скачивания файла", zap.Error(err))
		return h.sendMessage(chatID, "⚠️ Error downloading file: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return h.sendMessage(chatID, fmt.Sprintf("⚠️ Error downloading file: status %d", resp.StatusCode))
	}

	// Telegram может не сообщить размер файла, поэтому проверяем фактический
	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(h.maxFileSize)+1))
	if err != nil {
		h.logger.Error("ошибка чтения файла", zap.Error(err))
		return h.sendMessage(chatID, "⚠️ Error downloading file: "+err.Error())
	}
	if len(data) > h.maxFileSize {
		return h.sendMessage(chatID, "⚠️ File is too large")
	}

	msg, err := h.api.Transcribe(ctx, filename, bytes.NewReader(data))
	if err != nil {
		h.logger.Error("ошибка распознавания речи", zap.Error(err))
		return h.sendMessage(chatID, "⚠️ Error in STT conversion: "+frontend.ErrorDetail(err))
	}

	return h.sendMessage(chatID, "ℹ️ "+msg)
}

// SelectedVoice возвращает выбранный голос чата. Пустая строка означает голос по умолчанию.
func (h *Handler) SelectedVoice(chatID int64) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.selected[chatID]
}

func (h *Handler) sendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)

	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("ошибка отправки сообщения",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return err
	}
	return nil
}

// sanitizeText очищает текст от потенциально опасного содержимого
func sanitizeText(text string) string {
	// Ограничиваем длину
	if len(text) > MaxTextLength {
		text = text[:MaxTextLength]
	}

	// Срез мог разрезать многобайтовый символ
	text = strings.ToValidUTF8(text, "")

	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r", "")

	return strings.TrimSpace(text)
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "…"
}

const startText = `🎙️ TTS/STT Demo

/voices - select a voice
Send any text - get it back as speech
Send a voice message or audio file - speech to text (placeholder)`
