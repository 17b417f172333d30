package bot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tts-bridge/internal/frontend"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSender записывает всё, что бот пытается отправить
type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	fileURL  string
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) GetFileDirectURL(fileID string) (string, error) {
	if f.fileURL == "" {
		return "", errors.New("file not found")
	}
	return f.fileURL + "/" + fileID, nil
}

func (f *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	msg, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok, "последнее отправленное должно быть текстом")
	return msg.Text
}

type fakeAPI struct {
	voices     []frontend.Voice
	voicesErr  error
	audio      []byte
	synthErr   error
	synthVoice []string
	uploaded   []string

	// started закрывается при входе в Synthesize, release отпускает вызов
	started chan struct{}
	release chan struct{}
}

func (f *fakeAPI) Voices(ctx context.Context) ([]frontend.Voice, error) {
	return f.voices, f.voicesErr
}

func (f *fakeAPI) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	f.synthVoice = append(f.synthVoice, voiceID)
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.audio, f.synthErr
}

func (f *fakeAPI) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	data, _ := io.ReadAll(audio)
	f.uploaded = append(f.uploaded, filename+":"+string(data))
	return "STT functionality will be implemented soon", nil
}

func newTestHandler(t *testing.T, api *fakeAPI) (*Handler, *fakeSender, *frontend.OutputStore) {
	t.Helper()
	sender := &fakeSender{}
	store := frontend.NewOutputStore(filepath.Join(t.TempDir(), "output"), zap.NewNop())
	return NewHandler(sender, api, store, zap.NewNop()), sender, store
}

func commandUpdate(chatID int64, command string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: command,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(command)},
		},
	}}
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
	}}
}

func TestStartCommand(t *testing.T) {
	h, sender, _ := newTestHandler(t, &fakeAPI{})

	require.NoError(t, h.HandleUpdate(context.Background(), commandUpdate(1, "/start")))
	assert.Contains(t, sender.lastText(t), "/voices")
}

func TestVoicesCommandAndSelection(t *testing.T) {
	api := &fakeAPI{voices: []frontend.Voice{{ID: "v1", Name: "Rachel"}, {ID: "v2", Name: "Domi"}}}
	h, sender, _ := newTestHandler(t, api)

	require.NoError(t, h.HandleUpdate(context.Background(), commandUpdate(7, "/voices")))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, keyboard.InlineKeyboard, 2)
	assert.Equal(t, "Rachel", keyboard.InlineKeyboard[0][0].Text)
	assert.Equal(t, "voice:v1", *keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "voice:v2", *keyboard.InlineKeyboard[1][0].CallbackData)

	// Нажатие на кнопку выбирает голос для чата
	callback := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "voice:v2",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}},
	}}
	require.NoError(t, h.HandleUpdate(context.Background(), callback))

	assert.Equal(t, "v2", h.SelectedVoice(7))
	assert.Equal(t, "", h.SelectedVoice(8))
	assert.Contains(t, sender.lastText(t), "Domi")
	require.Len(t, sender.requests, 1)
}

func TestVoicesCommandError(t *testing.T) {
	api := &fakeAPI{voicesErr: &frontend.APIError{StatusCode: 500, Detail: "invalid api key"}}
	h, sender, _ := newTestHandler(t, api)

	require.NoError(t, h.HandleUpdate(context.Background(), commandUpdate(1, "/voices")))
	assert.Contains(t, sender.lastText(t), "Error fetching voices: invalid api key")
}

func TestTextMessageSynthesizes(t *testing.T) {
	audio := []byte{0xFF, 0xFB, 0x42}
	api := &fakeAPI{audio: audio}
	h, sender, store := newTestHandler(t, api)

	require.NoError(t, h.HandleUpdate(context.Background(), textUpdate(3, "Hello world")))

	// Без выбора голоса используется голос по умолчанию API
	assert.Equal(t, []string{""}, api.synthVoice)

	require.Len(t, sender.sent, 1)
	audioMsg, ok := sender.sent[0].(tgbotapi.AudioConfig)
	require.True(t, ok)
	assert.Equal(t, int64(3), audioMsg.ChatID)
	file := audioMsg.File.(tgbotapi.FileBytes)
	assert.Equal(t, audio, file.Bytes)
	assert.True(t, strings.HasPrefix(file.Name, "tts_output_"))

	files, err := store.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, file.Name, files[0].Name)
}

func TestTextMessageBackendError(t *testing.T) {
	api := &fakeAPI{synthErr: &frontend.APIError{StatusCode: 500, Detail: "quota exceeded"}}
	h, sender, store := newTestHandler(t, api)

	require.NoError(t, h.HandleUpdate(context.Background(), textUpdate(3, "Hello")))
	assert.Contains(t, sender.lastText(t), "Error in TTS conversion: quota exceeded")

	files, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestVoiceMessagePlaceholder(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/file-1", r.URL.Path)
		w.Write([]byte("OggS"))
	}))
	defer files.Close()

	api := &fakeAPI{}
	h, sender, _ := newTestHandler(t, api)
	sender.fileURL = files.URL

	update := tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: 5},
		Voice: &tgbotapi.Voice{FileID: "file-1", FileSize: 4},
	}}
	require.NoError(t, h.HandleUpdate(context.Background(), update))

	assert.Equal(t, []string{"voice.ogg:OggS"}, api.uploaded)
	assert.Contains(t, sender.lastText(t), "STT functionality will be implemented soon")
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello", sanitizeText("  hel\x00lo\r\n"))
	assert.Equal(t, MaxTextLength, len(sanitizeText(strings.Repeat("a", MaxTextLength+10))))
	assert.Equal(t, "", sanitizeText("   "))
}

func TestListenWaitsForInFlightUpdates(t *testing.T) {
	api := &fakeAPI{
		audio:   []byte{0xFF, 0xFB},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	h, _, store := newTestHandler(t, api)

	updates := make(chan tgbotapi.Update, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Listen(ctx, updates)
		close(done)
	}()

	updates <- textUpdate(9, "Hello")
	<-api.started
	cancel()

	select {
	case <-done:
		t.Fatal("Listen завершился раньше активного обработчика")
	case <-time.After(50 * time.Millisecond):
	}

	close(api.release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen не завершился после обработки")
	}

	files, err := store.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int64(2), files[0].Size)
}

func TestAudioUploadWithoutSizeIsBounded(t *testing.T) {
	payload := bytes.Repeat([]byte("a"), 64)
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer files.Close()

	api := &fakeAPI{}
	h, sender, _ := newTestHandler(t, api)
	sender.fileURL = files.URL
	h.maxFileSize = len(payload) - 1

	// Telegram не сообщил размер файла
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 5},
		Document: &tgbotapi.Document{FileID: "doc-1", FileName: "speech.wav"},
	}}
	require.NoError(t, h.HandleUpdate(context.Background(), update))

	assert.Empty(t, api.uploaded)
	assert.Contains(t, sender.lastText(t), "File is too large")

	// Файл ровно на лимите проходит целиком
	h.maxFileSize = len(payload)
	require.NoError(t, h.HandleUpdate(context.Background(), update))
	require.Len(t, api.uploaded, 1)
	assert.Equal(t, "speech.wav:"+string(payload), api.uploaded[0])
}
