package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestListVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/voices", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"voices":[
			{"voice_id":"b","name":"Bella","category":"premade"},
			{"voice_id":"a","name":"Adam","preview_url":"https://example.com/a.mp3"}
		]}`))
	}))
	defer srv.Close()

	svc := NewElevenLabsService(zap.NewNop(), "secret", srv.URL, time.Second)
	voices, err := svc.ListVoices(context.Background())
	require.NoError(t, err)

	// Порядок провайдера сохраняется
	require.Len(t, voices, 2)
	assert.Equal(t, Voice{ID: "b", Name: "Bella", Category: "premade"}, voices[0])
	assert.Equal(t, "a", voices[1].ID)
	assert.Equal(t, "https://example.com/a.mp3", voices[1].PreviewURL)
}

func TestSynthesize(t *testing.T) {
	audio := []byte{0xFF, 0xFB, 0x90, 0x00}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		assert.Equal(t, "audio/mpeg", r.Header.Get("Accept"))

		var body synthesizeBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello world", body.Text)
		assert.Equal(t, DefaultModelID, body.ModelID)

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	}))
	defer srv.Close()

	svc := NewElevenLabsService(zap.NewNop(), "secret", srv.URL+"/", time.Second)
	got, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "Hello world", VoiceID: "voice-1"})
	require.NoError(t, err)
	assert.Equal(t, audio, got)
}

func TestSynthesize_DefaultVoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/"+DefaultVoiceID, r.URL.Path)
		w.Write([]byte{0xFF})
	}))
	defer srv.Close()

	svc := NewElevenLabsService(zap.NewNop(), "secret", srv.URL, time.Second)
	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi"})
	require.NoError(t, err)
}

func TestSynthesize_APIError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{
			name:    "вложенный detail",
			body:    `{"detail":{"status":"voice_not_found","message":"A voice with that ID does not exist"}}`,
			status:  http.StatusNotFound,
			message: "A voice with that ID does not exist",
		},
		{
			name:    "строковый detail",
			body:    `{"detail":"quota exceeded"}`,
			status:  http.StatusTooManyRequests,
			message: "quota exceeded",
		},
		{
			name:    "не JSON",
			body:    "bad gateway",
			status:  http.StatusBadGateway,
			message: "bad gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			svc := NewElevenLabsService(zap.NewNop(), "secret", srv.URL, time.Second)
			audio, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi", VoiceID: "x"})
			require.Error(t, err)
			assert.Nil(t, audio)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestSynthesize_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	svc := NewElevenLabsService(zap.NewNop(), "secret", srv.URL, 50*time.Millisecond)
	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestListVoices_ConnectionError(t *testing.T) {
	svc := NewElevenLabsService(zap.NewNop(), "secret", "http://127.0.0.1:1", time.Second)
	_, err := svc.ListVoices(context.Background())
	assert.Error(t, err)
}
