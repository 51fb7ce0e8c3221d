// Package api_test exercises the HTTP surface end to end with a stubbed upstream.
package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/api"
	"github.com/book-expert/speech-service/internal/api/handlers"
	"github.com/book-expert/speech-service/internal/audio"
	"github.com/book-expert/speech-service/internal/core"
	"github.com/book-expert/speech-service/internal/metrics"
	"github.com/book-expert/speech-service/internal/speech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxBodyBytes = 1 << 16

// stubGenerator is a mock implementation of the SpeechGenerator interface.
type stubGenerator struct {
	mu       sync.Mutex
	pcm      []byte
	err      error
	requests []core.SpeechRequest
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(_ context.Context, req core.SpeechRequest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)

	if s.err != nil {
		return nil, s.err
	}

	return s.pcm, nil
}

func (s *stubGenerator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

func (s *stubGenerator) lastRequest(t *testing.T) core.SpeechRequest {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	require.NotEmpty(t, s.requests)

	return s.requests[len(s.requests)-1]
}

// panicSynthesizer panics on every call.
type panicSynthesizer struct{}

func (panicSynthesizer) Synthesize(context.Context, []byte) (*speech.Result, error) {
	panic("boom")
}

func setupServer(t *testing.T, generator *stubGenerator) *httptest.Server {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "api-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = testLogger.Close() })

	collectors := metrics.New()

	service, err := speech.NewService(generator, audio.DefaultFormat(), collectors, testLogger)
	require.NoError(t, err)

	server := httptest.NewServer(api.NewRouter(service, collectors, testMaxBodyBytes, testLogger).Setup())
	t.Cleanup(server.Close)

	return server
}

func postSpeech(t *testing.T, server *httptest.Server, body string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequestWithContext(
		context.Background(),
		http.MethodPost,
		server.URL+api.PathSpeech,
		strings.NewReader(body),
	)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.Client().Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	return resp, readAll(t, resp)
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return data
}

func decodeError(t *testing.T, data []byte) string {
	t.Helper()

	var payload map[string]string

	require.NoError(t, json.Unmarshal(data, &payload))

	return payload["error"]
}

func TestHome(t *testing.T) {
	t.Parallel()

	server := setupServer(t, &stubGenerator{})

	resp, err := server.Client().Get(server.URL + api.PathHome)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, handlers.LivenessMessage, string(readAll(t, resp)))
}

func TestSpeech_ReturnsWAVAttachment(t *testing.T) {
	t.Parallel()

	generator := &stubGenerator{pcm: []byte{0x00, 0x01, 0x02, 0x03}}
	server := setupServer(t, generator)

	resp, data := postSpeech(t, server, `{"contents": "Hello"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="output.wav"`, resp.Header.Get("Content-Disposition"))
	assert.NotEmpty(t, resp.Header.Get("X-Speech-Job-Id"))
	require.Len(t, data, audio.WAVHeaderSize+4)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, []byte{0x00, 0x01, 0x02, 0x03}, data[audio.WAVHeaderSize:])

	sent := generator.lastRequest(t)
	assert.Equal(t, "Hello", sent.Contents)
	assert.Equal(t, core.DefaultModel, sent.Model)
	assert.Empty(t, sent.SpeakerVoices)
}

func TestSpeech_DropsMalformedSpeakerBinding(t *testing.T) {
	t.Parallel()

	generator := &stubGenerator{pcm: []byte{0x10, 0x20}}
	server := setupServer(t, generator)

	body := `{"contents": "A: hi\nB: hello", "config": {"speech_config": {"multi_speaker_voice_config": ` +
		`{"speaker_voice_configs": [` +
		`{"speaker": "A", "voice_config": {"prebuilt_voice_config": {"voice_name": "Kore"}}},` +
		`{"speaker": "B"}]}}}}`

	resp, _ := postSpeech(t, server, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sent := generator.lastRequest(t)
	assert.Equal(t, []core.SpeakerVoiceBinding{{Speaker: "A", VoiceName: "Kore"}}, sent.SpeakerVoices)
}

func TestSpeech_MissingContentIs400(t *testing.T) {
	t.Parallel()

	generator := &stubGenerator{pcm: []byte{1}}
	server := setupServer(t, generator)

	for _, body := range []string{`{}`, `{"contents": ""}`, `{"model": "x"}`} {
		resp, data := postSpeech(t, server, body)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.Equal(t, "Missing content", decodeError(t, data))
	}

	assert.Zero(t, generator.callCount())
}

func TestSpeech_UpstreamFailureIs500WithMessage(t *testing.T) {
	t.Parallel()

	const upstreamText = "Error 400, Message: API key not valid. Please pass a valid API key., Status: INVALID_ARGUMENT"

	for _, upstreamErr := range []error{
		core.NewUpstreamError(errors.New(upstreamText)),
		fmt.Errorf("%w: %w", core.ErrUpstreamCall, errors.New(upstreamText)),
	} {
		server := setupServer(t, &stubGenerator{err: upstreamErr})

		resp, data := postSpeech(t, server, `{"contents": "Hello"}`)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, upstreamText, decodeError(t, data))
	}
}

func TestSpeech_MalformedBodyIs500(t *testing.T) {
	t.Parallel()

	server := setupServer(t, &stubGenerator{pcm: []byte{1}})

	resp, data := postSpeech(t, server, `{"contents": `)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, core.ErrInvalidBody.Error(), decodeError(t, data))
}

func TestSpeech_OversizeBodyIs500(t *testing.T) {
	t.Parallel()

	server := setupServer(t, &stubGenerator{pcm: []byte{1}})

	body := `{"contents": "` + strings.Repeat("a", testMaxBodyBytes) + `"}`

	recorder := httptest.NewRecorder()
	server.Config.Handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, api.PathSpeech, strings.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, decodeError(t, recorder.Body.Bytes()), "request body too large")
}

func TestSpeech_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	server := setupServer(t, &stubGenerator{})

	resp, err := server.Client().Get(server.URL + api.PathSpeech)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	server := setupServer(t, &stubGenerator{pcm: []byte{1, 2}})

	postSpeech(t, server, `{"contents": "Hello"}`)
	postSpeech(t, server, `{}`)

	resp, err := server.Client().Get(server.URL + api.PathMetrics)
	require.NoError(t, err)

	defer resp.Body.Close()

	body := string(readAll(t, resp))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `speech_service_requests_total{outcome="success",transport="http"} 1`)
	assert.Contains(t, body, `speech_service_requests_total{outcome="missing_content",transport="http"} 1`)
	assert.Contains(t, body, "speech_service_wav_bytes_total 46")
}

func TestRecoverWritesJSONError(t *testing.T) {
	t.Parallel()

	testLogger, err := logger.New(t.TempDir(), "api-panic-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = testLogger.Close() })

	handler := api.NewRouter(panicSynthesizer{}, metrics.New(), testMaxBodyBytes, testLogger).Setup()

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, api.PathSpeech, strings.NewReader(`{"contents": "hi"}`))
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, decodeError(t, recorder.Body.Bytes()), "boom")
}
