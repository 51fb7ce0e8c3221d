// Package core defines the core business types and interfaces for the speech service.
package core

import (
	"context"
	"errors"
)

// DefaultModel is the Gemini model used when a request does not name one.
const DefaultModel = "gemini-2.5-flash-preview-tts"

// ResponseModalityAudio is the only response modality the service requests.
const ResponseModalityAudio = "AUDIO"

var (
	// ErrMissingContent indicates that the request carried no text to synthesize.
	ErrMissingContent = errors.New("Missing content") //nolint:staticcheck // surfaced verbatim to HTTP clients
	// ErrInvalidBody indicates that the request body is not a JSON object.
	ErrInvalidBody = errors.New("request body must be a JSON object")
	// ErrUpstreamCall indicates a transport, auth, or quota failure talking to the upstream.
	ErrUpstreamCall = errors.New("upstream call failed")
	// ErrUpstreamResponse indicates the upstream answered without an audio payload.
	ErrUpstreamResponse = errors.New("upstream response has no audio payload")
	// ErrEncoding indicates the raw audio could not be wrapped into a WAV container.
	ErrEncoding = errors.New("wav encoding failed")
)

// SpeakerVoiceBinding assigns a prebuilt voice to a speaker label used in the text.
type SpeakerVoiceBinding struct {
	Speaker   string `json:"speaker"`
	VoiceName string `json:"voice_name"`
}

// SpeechRequest is a validated, fully defaulted speech-generation request.
// Responses are always requested as AUDIO with a multi-speaker voice config,
// even when SpeakerVoices has zero or one entries.
type SpeechRequest struct {
	Model         string                `json:"model"`
	Contents      string                `json:"contents"`
	SpeakerVoices []SpeakerVoiceBinding `json:"speaker_voices"`
}

// SpeechGenerator defines the interface for an upstream text-to-speech engine.
// Generate returns raw mono 16-bit little-endian PCM.
type SpeechGenerator interface {
	Generate(ctx context.Context, req SpeechRequest) ([]byte, error)
	Name() string
}

// UpstreamError is a failed upstream call. It matches ErrUpstreamCall and keeps
// the upstream's own message in Cause so it can be reported unchanged.
type UpstreamError struct {
	Cause error
}

// NewUpstreamError wraps cause as an UpstreamError.
func NewUpstreamError(cause error) *UpstreamError {
	return &UpstreamError{Cause: cause}
}

func (e *UpstreamError) Error() string {
	if e.Cause == nil {
		return ErrUpstreamCall.Error()
	}

	return ErrUpstreamCall.Error() + ": " + e.Cause.Error()
}

// Message returns the upstream's message verbatim.
func (e *UpstreamError) Message() string {
	if e.Cause == nil {
		return ErrUpstreamCall.Error()
	}

	return e.Cause.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrUpstreamCall.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamCall } //nolint:errorlint // sentinel identity
