package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"tts-bridge/internal/speech"

	"go.uber.org/zap"
)

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// statusFor сопоставляет тип ошибки HTTP статусу.
// Ошибки валидации - 400, все ошибки провайдера и ввода-вывода - 500.
func statusFor(err error) int {
	var vErr *speech.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	detail := err.Error()
	if detail == "" {
		detail = http.StatusText(status)
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("ошибка обработки запроса",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	} else {
		s.logger.Warn("некорректный запрос",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	writeJSON(w, status, ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
