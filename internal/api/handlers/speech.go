// Package handlers implements the HTTP handlers of the speech service.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/core"
	"github.com/book-expert/speech-service/internal/metrics"
	"github.com/book-expert/speech-service/internal/speech"
	"github.com/google/uuid"
)

// HTTP headers and values.
const (
	headerContentType        = "Content-Type"
	headerContentDisposition = "Content-Disposition"
	headerContentLength      = "Content-Length"
	headerJobID              = "X-Speech-Job-Id"
	contentTypeJSON          = "application/json"
	contentTypeWAV           = "audio/wav"
	attachmentDisposition    = `attachment; filename="output.wav"`
)

// Log formats.
const (
	logFmtJobFailed    = "Speech job %s failed: %v"
	logFmtJobSucceeded = "Speech job %s returned %d bytes"
)

// Synthesizer is the pipeline the handler delegates to.
type Synthesizer interface {
	Synthesize(ctx context.Context, body []byte) (*speech.Result, error)
}

// SpeechHandler serves POST /api/gen/speech.
type SpeechHandler struct {
	synthesizer  Synthesizer
	metrics      *metrics.Metrics
	maxBodyBytes int64
	log          *logger.Logger
}

// NewSpeechHandler creates a SpeechHandler.
func NewSpeechHandler(
	synthesizer Synthesizer,
	collectors *metrics.Metrics,
	maxBodyBytes int64,
	log *logger.Logger,
) *SpeechHandler {
	return &SpeechHandler{
		synthesizer:  synthesizer,
		metrics:      collectors,
		maxBodyBytes: maxBodyBytes,
		log:          log,
	}
}

// Generate translates the JSON body, synthesizes speech, and returns it as a
// WAV attachment. The WAV is fully assembled before anything is written.
func (h *SpeechHandler) Generate(w http.ResponseWriter, r *http.Request) {
	jobID := uuid.NewString()

	result, err := h.synthesize(w, r)
	h.metrics.RecordRequest(metrics.TransportHTTP, err)

	if err != nil {
		h.log.Error(logFmtJobFailed, jobID, err)
		WriteError(w, err)

		return
	}

	w.Header().Set(headerContentType, contentTypeWAV)
	w.Header().Set(headerContentDisposition, attachmentDisposition)
	w.Header().Set(headerContentLength, strconv.Itoa(len(result.WAV)))
	w.Header().Set(headerJobID, jobID)
	w.WriteHeader(http.StatusOK)

	_, writeErr := w.Write(result.WAV)
	if writeErr != nil {
		h.log.Warn("Failed to write audio for speech job %s: %v", jobID, writeErr)

		return
	}

	h.log.Info(logFmtJobSucceeded, jobID, len(result.WAV))
}

func (h *SpeechHandler) synthesize(w http.ResponseWriter, r *http.Request) (*speech.Result, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	return h.synthesizer.Synthesize(r.Context(), body)
}

// StatusFor maps a pipeline error onto the HTTP status the client receives.
// Only a missing content field is the caller's fault.
func StatusFor(err error) int {
	if errors.Is(err, core.ErrMissingContent) {
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// ErrorMessage returns the text placed in the JSON error body. Upstream
// failures report the upstream's message unchanged.
func ErrorMessage(err error) string {
	if errors.Is(err, core.ErrMissingContent) {
		return core.ErrMissingContent.Error()
	}

	var upstreamErr *core.UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Message()
	}

	if errors.Is(err, core.ErrUpstreamCall) {
		return strings.TrimPrefix(err.Error(), core.ErrUpstreamCall.Error()+": ")
	}

	return err.Error()
}

// WriteError writes err as {"error": "..."} with its mapped status.
func WriteError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), map[string]string{"error": ErrorMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
