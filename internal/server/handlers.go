package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"tts-bridge/internal/speech"

	"go.uber.org/zap"
)

// TTSRequest тело запроса POST /tts
type TTSRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
}

// VoiceDTO голос в ответе GET /voices
type VoiceDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// VoicesResponse ответ GET /voices
type VoicesResponse struct {
	Voices []VoiceDTO `json:"voices"`
}

// MessageResponse ответ с текстовым сообщением
type MessageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: welcomeMessage})
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.speech.ListVoices(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := VoicesResponse{Voices: make([]VoiceDTO, 0, len(voices))}
	for _, v := range voices {
		resp.Voices = append(resp.Voices, VoiceDTO{ID: v.ID, Name: v.Name})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req TTSRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxJSONBodySize)).Decode(&req); err != nil {
		s.writeError(w, r, &speech.ValidationError{Field: "body", Reason: "invalid JSON: " + err.Error()})
		return
	}

	audio, err := s.speech.Synthesize(r.Context(), req.Text, req.VoiceID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Заголовки пишутся только после успешного ответа провайдера
	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+audio.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, bytes.NewReader(audio.Data)); err != nil {
		s.logger.Warn("клиент прервал получение аудио", zap.Error(err))
	}
}

func (s *Server) handleSTT(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			s.writeError(w, r, &speech.ValidationError{Field: "audio_file", Reason: "file too large"})
		case errors.Is(err, http.ErrMissingFile):
			s.writeError(w, r, &speech.ValidationError{Field: "audio_file", Reason: "field required"})
		default:
			s.writeError(w, r, &speech.ValidationError{Field: "audio_file", Reason: err.Error()})
		}
		return
	}
	defer file.Close()

	msg, err := s.speech.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}
