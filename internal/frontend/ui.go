package frontend

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templatesFS embed.FS

// MaxUploadSize ограничение на файл для распознавания
const MaxUploadSize = 25 * 1024 * 1024

// SpeechAPI операции API, которые использует интерфейс
type SpeechAPI interface {
	Voices(ctx context.Context) ([]Voice, error)
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// pageData данные для шаблона страницы
type pageData struct {
	Voices        []Voice
	SelectedVoice string
	Text          string
	Warnings      []string
	Audio         *SavedAudio
	STTMessage    string
}

// UI веб-интерфейс: выбор голоса, ввод текста, воспроизведение и скачивание
type UI struct {
	api    SpeechAPI
	store  *OutputStore
	tmpl   *template.Template
	logger *zap.Logger
}

// NewUI создает веб-интерфейс
func NewUI(api SpeechAPI, store *OutputStore, logger *zap.Logger) *UI {
	return &UI{
		api:    api,
		store:  store,
		tmpl:   template.Must(template.ParseFS(templatesFS, "templates/index.html")),
		logger: logger,
	}
}

// Router собирает маршруты интерфейса
func (u *UI) Router(mw ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(mw...)

	r.Get("/", u.handleIndex)
	r.Post("/convert", u.handleConvert)
	r.Post("/transcribe", u.handleTranscribe)
	r.Get("/audio/{name}", u.handleAudio)

	return r
}

func (u *UI) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := u.newPage(r.Context())
	u.render(w, data)
}

func (u *UI) handleConvert(w http.ResponseWriter, r *http.Request) {
	data := u.newPage(r.Context())

	if err := r.ParseForm(); err != nil {
		data.Warnings = append(data.Warnings, "Invalid form: "+err.Error())
		u.render(w, data)
		return
	}

	data.Text = r.PostFormValue("text")
	voiceID := r.PostFormValue("voice_id")
	if voiceID != "" {
		data.SelectedVoice = voiceID
	}

	if strings.TrimSpace(data.Text) == "" || voiceID == "" {
		data.Warnings = append(data.Warnings, "Please enter text and select a voice")
		u.render(w, data)
		return
	}

	audio, err := u.api.Synthesize(r.Context(), data.Text, voiceID)
	if err != nil {
		u.logger.Error("ошибка синтеза речи", zap.Error(err))
		data.Warnings = append(data.Warnings, "Error in TTS conversion: "+ErrorDetail(err))
		u.render(w, data)
		return
	}

	saved, err := u.store.Save(audio)
	if err != nil {
		u.logger.Error("ошибка сохранения аудио", zap.Error(err))
		data.Warnings = append(data.Warnings, "Error saving audio: "+err.Error())
		u.render(w, data)
		return
	}

	data.Audio = saved
	u.render(w, data)
}

func (u *UI) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	data := u.newPage(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	file, header, err := r.FormFile("audio_file")
	if err != nil {
		data.Warnings = append(data.Warnings, "Please upload a WAV or MP3 file")
		u.render(w, data)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".wav" && ext != ".mp3" {
		data.Warnings = append(data.Warnings, "Unsupported file type: only WAV and MP3 are accepted")
		u.render(w, data)
		return
	}

	msg, err := u.api.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		u.logger.Error("ошибка распознавания речи", zap.Error(err))
		data.Warnings = append(data.Warnings, "Error in STT conversion: "+ErrorDetail(err))
		u.render(w, data)
		return
	}

	data.STTMessage = msg
	u.render(w, data)
}

func (u *UI) handleAudio(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	f, err := u.store.Open(name)
	if err != nil {
		if errors.Is(err, ErrInvalidName) || errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		u.logger.Error("ошибка открытия аудио", zap.String("name", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// newPage загружает список голосов; ошибка показывается как предупреждение
func (u *UI) newPage(ctx context.Context) *pageData {
	data := &pageData{}

	voices, err := u.api.Voices(ctx)
	if err != nil {
		u.logger.Warn("ошибка получения списка голосов", zap.Error(err))
		data.Warnings = append(data.Warnings, "Error fetching voices: "+ErrorDetail(err))
		return data
	}

	data.Voices = voices
	if len(voices) > 0 {
		data.SelectedVoice = voices[0].ID
	}
	return data
}

func (u *UI) render(w http.ResponseWriter, data *pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := u.tmpl.Execute(w, data); err != nil {
		u.logger.Error("ошибка рендеринга страницы", zap.Error(err))
	}
}

// ErrorDetail возвращает detail ответа API или текст ошибки
func ErrorDetail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return err.Error()
}
