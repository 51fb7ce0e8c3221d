// Package audio provides the PCM sample format description and the WAV container
// encoder used to wrap raw audio returned by the upstream speech service.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// Default format of the raw audio returned by the Gemini speech models.
const (
	DefaultSampleRate    = 24000
	DefaultChannels      = 1
	DefaultBitsPerSample = 16
)

// Supported bit depths.
const (
	BitDepth8  = 8
	BitDepth16 = 16
	BitDepth24 = 24
	BitDepth32 = 32
)

// Validation limits.
const (
	MaxSampleRate = 192000
	MaxChannels   = 8
)

const bitsPerByte = 8

// Error message formats.
const (
	errFmtSampleRateRange = "%w: sample rate must be between 1 and %d Hz, got %d"
	errFmtBitDepthValues  = "%w: bits per sample must be 8, 16, 24, or 32, got %d"
	errFmtChannelsRange   = "%w: channels must be between 1 and %d, got %d"
)

// ErrInvalidFormat is returned when a Format cannot describe a valid PCM stream.
var ErrInvalidFormat = errors.New("invalid audio format")

// Format describes the layout of a raw little-endian PCM stream.
type Format struct {
	SampleRate    int `toml:"sample_rate"`
	Channels      int `toml:"channels"`
	BitsPerSample int `toml:"bits_per_sample"`
}

// DefaultFormat returns mono 16-bit PCM at 24000 Hz.
func DefaultFormat() Format {
	return Format{
		SampleRate:    DefaultSampleRate,
		Channels:      DefaultChannels,
		BitsPerSample: DefaultBitsPerSample,
	}
}

// Validate checks that the format fields are within supported bounds.
func (f Format) Validate() error {
	if f.SampleRate <= 0 || f.SampleRate > MaxSampleRate {
		return fmt.Errorf(errFmtSampleRateRange, ErrInvalidFormat, MaxSampleRate, f.SampleRate)
	}

	switch f.BitsPerSample {
	case BitDepth8, BitDepth16, BitDepth24, BitDepth32:
	default:
		return fmt.Errorf(errFmtBitDepthValues, ErrInvalidFormat, f.BitsPerSample)
	}

	if f.Channels <= 0 || f.Channels > MaxChannels {
		return fmt.Errorf(errFmtChannelsRange, ErrInvalidFormat, MaxChannels, f.Channels)
	}

	return nil
}

// BlockAlign is the number of bytes in one frame (one sample for every channel).
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / bitsPerByte
}

// ByteRate is the number of bytes consumed per second of playback.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

// Duration reports the playback length of n bytes of PCM in this format.
func (f Format) Duration(n int) time.Duration {
	byteRate := f.ByteRate()
	if byteRate <= 0 || n <= 0 {
		return 0
	}

	return time.Duration(int64(n) * int64(time.Second) / int64(byteRate))
}
