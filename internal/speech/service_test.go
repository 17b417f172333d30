package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tts-bridge/internal/metrics"
	"tts-bridge/internal/tts"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubProvider подменяет сетевого провайдера в тестах
type stubProvider struct {
	audio    []byte
	voices   []tts.Voice
	err      error
	block    bool
	requests []tts.SynthesisRequest
	listed   int
}

func (p *stubProvider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	p.listed++
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.voices, p.err
}

func (p *stubProvider) Synthesize(ctx context.Context, req tts.SynthesisRequest) ([]byte, error) {
	p.requests = append(p.requests, req)
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.audio, p.err
}

func newTestService(p tts.Provider, timeout time.Duration) *Service {
	m := metrics.New(zap.NewNop(), prometheus.NewRegistry())
	return NewService(p, Config{Timeout: timeout}, m, zap.NewNop())
}

func TestSynthesize(t *testing.T) {
	audio := []byte{0xFF, 0xFB, 0x90, 0x64}
	p := &stubProvider{audio: audio}
	svc := newTestService(p, time.Second)

	got, err := svc.Synthesize(context.Background(), "Hello world", "voice-1")
	require.NoError(t, err)
	assert.Equal(t, audio, got.Data)
	assert.Equal(t, "audio/mpeg", got.ContentType)
	assert.Equal(t, "tts_output.mp3", got.FileName)

	require.Len(t, p.requests, 1)
	assert.Equal(t, tts.SynthesisRequest{
		Text:    "Hello world",
		VoiceID: "voice-1",
		ModelID: tts.DefaultModelID,
	}, p.requests[0])
}

func TestSynthesize_DefaultVoice(t *testing.T) {
	p := &stubProvider{audio: []byte{1}}
	svc := newTestService(p, time.Second)

	_, err := svc.Synthesize(context.Background(), "Hello", "")
	require.NoError(t, err)
	require.Len(t, p.requests, 1)
	assert.Equal(t, "21m00Tcm4TlvDq8ikWAM", p.requests[0].VoiceID)
}

func TestSynthesize_EmptyTextNeverCallsProvider(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		p := &stubProvider{audio: []byte{1}}
		svc := newTestService(p, time.Second)

		_, err := svc.Synthesize(context.Background(), text, "voice-1")

		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr), "text %q", text)
		assert.Equal(t, "text", vErr.Field)
		assert.Empty(t, p.requests)
	}
}

func TestSynthesize_ProviderFailure(t *testing.T) {
	p := &stubProvider{err: &tts.APIError{StatusCode: 401, Message: "invalid api key"}}
	svc := newTestService(p, time.Second)

	audio, err := svc.Synthesize(context.Background(), "Hello", "")
	assert.Nil(t, audio)

	var sErr *SynthesisError
	require.True(t, errors.As(err, &sErr))
	assert.Contains(t, err.Error(), "invalid api key")

	var apiErr *tts.APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestSynthesize_EmptyAudioIsFailure(t *testing.T) {
	svc := newTestService(&stubProvider{audio: nil}, time.Second)

	_, err := svc.Synthesize(context.Background(), "Hello", "")
	var sErr *SynthesisError
	assert.True(t, errors.As(err, &sErr))
}

func TestSynthesize_Timeout(t *testing.T) {
	svc := newTestService(&stubProvider{block: true}, 20*time.Millisecond)

	_, err := svc.Synthesize(context.Background(), "Hello", "")

	var tErr *ProviderTimeout
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, "synthesize", tErr.Op)
}

func TestListVoices(t *testing.T) {
	voices := []tts.Voice{
		{ID: "z", Name: "Zed"},
		{ID: "a", Name: "Adam"},
		{ID: "m", Name: "Mia"},
	}
	svc := newTestService(&stubProvider{voices: voices}, time.Second)

	got, err := svc.ListVoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, voices, got)
}

func TestListVoices_Failure(t *testing.T) {
	svc := newTestService(&stubProvider{err: fmt.Errorf("network down")}, time.Second)

	_, err := svc.ListVoices(context.Background())

	var cErr *CatalogError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, "network down", err.Error())
}

func TestListVoices_Timeout(t *testing.T) {
	svc := newTestService(&stubProvider{block: true}, 20*time.Millisecond)

	_, err := svc.ListVoices(context.Background())

	var tErr *ProviderTimeout
	assert.True(t, errors.As(err, &tErr))
}

func TestTranscribe_PlaceholderAndCleanup(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TMPDIR", tmpDir)

	svc := newTestService(&stubProvider{}, time.Second)

	inputs := map[string][]byte{
		"empty.wav": {},
		"small.wav": []byte("RIFF....WAVE"),
		"big.mp3":   bytes.Repeat([]byte{0xAB}, 1<<20),
	}

	for name, data := range inputs {
		msg, err := svc.Transcribe(context.Background(), name, bytes.NewReader(data))
		require.NoError(t, err, name)
		assert.Equal(t, STTPlaceholderMessage, msg)
	}

	// Временные файлы удалены
	leftovers, err := filepath.Glob(filepath.Join(tmpDir, "stt-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestTranscribe_ReadFailure(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TMPDIR", tmpDir)

	svc := newTestService(&stubProvider{}, time.Second)

	_, err := svc.Transcribe(context.Background(), "x.wav", failingReader{})

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.True(t, strings.Contains(err.Error(), "connection reset"))

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
