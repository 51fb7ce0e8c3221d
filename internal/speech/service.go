package speech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/audio"
	"github.com/book-expert/speech-service/internal/core"
)

// ErrGeneratorNil is returned when a Service is constructed without a generator.
var ErrGeneratorNil = errors.New("speech generator cannot be nil")

// Log formats.
const (
	logFmtGenerating = "Generating speech with model %s (%d speaker bindings, %d characters)"
	logFmtGenerated  = "Generated %s of audio with model %s (%s wav) in %s"
)

// Result is a fully encoded WAV file plus the facts worth logging about it.
type Result struct {
	WAV        []byte
	Request    core.SpeechRequest
	Duration   time.Duration
	UpstreamIn time.Duration
}

// Observer receives the timing of each upstream call. It may be nil.
type Observer interface {
	ObserveUpstream(model string, elapsed time.Duration, err error)
	ObserveAudioBytes(n int)
}

// Service runs the translate, generate, encode pipeline shared by every transport.
type Service struct {
	generator core.SpeechGenerator
	format    audio.Format
	observer  Observer
	log       *logger.Logger
}

// NewService creates a Service that wraps generator output using format.
func NewService(
	generator core.SpeechGenerator,
	format audio.Format,
	observer Observer,
	log *logger.Logger,
) (*Service, error) {
	if generator == nil {
		return nil, ErrGeneratorNil
	}

	err := format.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid upstream audio format: %w", err)
	}

	return &Service{
		generator: generator,
		format:    format,
		observer:  observer,
		log:       log,
	}, nil
}

// Synthesize translates body, generates speech upstream, and returns a complete WAV file.
// The returned error wraps one of the core sentinel errors.
func (s *Service) Synthesize(ctx context.Context, body []byte) (*Result, error) {
	req, err := Translate(body)
	if err != nil {
		return nil, err
	}

	s.log.Info(logFmtGenerating, req.Model, len(req.SpeakerVoices), len(req.Contents))

	started := time.Now()
	pcm, err := s.generator.Generate(ctx, req)
	elapsed := time.Since(started)

	if s.observer != nil {
		s.observer.ObserveUpstream(req.Model, elapsed, err)
	}

	if err != nil {
		s.log.Error("Speech generation via %s failed after %s: %v", s.generator.Name(), elapsed, err)

		return nil, err
	}

	wav, err := audio.EncodeWAV(pcm, s.format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEncoding, err)
	}

	if s.observer != nil {
		s.observer.ObserveAudioBytes(len(wav))
	}

	duration := s.format.Duration(len(pcm))
	s.log.Info(
		logFmtGenerated,
		audio.FormatDuration(duration),
		req.Model,
		audio.FormatFileSize(int64(len(wav))),
		elapsed.Round(time.Millisecond),
	)

	return &Result{
		WAV:        wav,
		Request:    req,
		Duration:   duration,
		UpstreamIn: elapsed,
	}, nil
}
