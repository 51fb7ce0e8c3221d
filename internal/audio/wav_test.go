// Package audio_test tests the WAV encoder and PCM format helpers.
package audio_test

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/book-expert/speech-service/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAV_HeaderFields(t *testing.T) {
	t.Parallel()

	pcm := []byte{0x00, 0x01, 0x02, 0x03}

	wav, err := audio.EncodeWAV(pcm, audio.DefaultFormat())
	require.NoError(t, err)
	require.Len(t, wav, audio.WAVHeaderSize+len(pcm))

	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(wav[16:20]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(wav[28:32]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[32:34]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
	assert.Equal(t, pcm, wav[audio.WAVHeaderSize:])
}

func TestEncodeWAV_PayloadRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pcm  []byte
	}{
		{name: "empty", pcm: []byte{}},
		{name: "nil", pcm: nil},
		{name: "single byte", pcm: []byte{0x7f}},
		{name: "one second of silence", pcm: make([]byte, 48000)},
		{name: "odd length", pcm: []byte{1, 2, 3, 4, 5, 6, 7}},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			wav, err := audio.EncodeWAV(testCase.pcm, audio.DefaultFormat())
			require.NoError(t, err)

			require.Len(t, wav, audio.WAVHeaderSize+len(testCase.pcm))
			assert.Equal(t, uint32(36+len(testCase.pcm)), binary.LittleEndian.Uint32(wav[4:8]))
			assert.Equal(t, uint32(len(testCase.pcm)), binary.LittleEndian.Uint32(wav[40:44]))
			assert.Equal(t, len(testCase.pcm), len(wav[audio.WAVHeaderSize:]))

			if len(testCase.pcm) > 0 {
				assert.Equal(t, testCase.pcm, wav[audio.WAVHeaderSize:])
			}
		})
	}
}

func TestEncodeWAV_Idempotent(t *testing.T) {
	t.Parallel()

	pcm := []byte("some raw little-endian samples")

	first, err := audio.EncodeWAV(pcm, audio.DefaultFormat())
	require.NoError(t, err)

	second, err := audio.EncodeWAV(pcm, audio.DefaultFormat())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEncodeWAV_DoesNotAliasInput(t *testing.T) {
	t.Parallel()

	pcm := []byte{9, 8, 7, 6}

	wav, err := audio.EncodeWAV(pcm, audio.DefaultFormat())
	require.NoError(t, err)

	pcm[0] = 0

	assert.Equal(t, byte(9), wav[audio.WAVHeaderSize])
}

func TestEncodeWAV_StereoFormat(t *testing.T) {
	t.Parallel()

	format := audio.Format{SampleRate: 44100, Channels: 2, BitsPerSample: 24}

	wav, err := audio.EncodeWAV([]byte{1, 2, 3, 4, 5, 6}, format)
	require.NoError(t, err)

	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(44100), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(44100*2*3), binary.LittleEndian.Uint32(wav[28:32]))
	assert.Equal(t, uint16(6), binary.LittleEndian.Uint16(wav[32:34]))
	assert.Equal(t, uint16(24), binary.LittleEndian.Uint16(wav[34:36]))
}

func TestEncodeWAV_InvalidFormat(t *testing.T) {
	t.Parallel()

	_, err := audio.EncodeWAV([]byte{0}, audio.Format{SampleRate: 0, Channels: 1, BitsPerSample: 16})
	require.ErrorIs(t, err, audio.ErrInvalidFormat)
}

func TestFormat_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		format  audio.Format
		wantErr bool
	}{
		{name: "default", format: audio.DefaultFormat(), wantErr: false},
		{name: "max sample rate", format: audio.Format{SampleRate: 192000, Channels: 8, BitsPerSample: 32}, wantErr: false},
		{name: "negative sample rate", format: audio.Format{SampleRate: -1, Channels: 1, BitsPerSample: 16}, wantErr: true},
		{name: "sample rate too high", format: audio.Format{SampleRate: 192001, Channels: 1, BitsPerSample: 16}, wantErr: true},
		{name: "unsupported bit depth", format: audio.Format{SampleRate: 24000, Channels: 1, BitsPerSample: 12}, wantErr: true},
		{name: "zero channels", format: audio.Format{SampleRate: 24000, Channels: 0, BitsPerSample: 16}, wantErr: true},
		{name: "too many channels", format: audio.Format{SampleRate: 24000, Channels: 9, BitsPerSample: 16}, wantErr: true},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			err := testCase.format.Validate()
			if testCase.wantErr {
				require.ErrorIs(t, err, audio.ErrInvalidFormat)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestFormat_Duration(t *testing.T) {
	t.Parallel()

	format := audio.DefaultFormat()

	assert.Equal(t, 2, format.BlockAlign())
	assert.Equal(t, 48000, format.ByteRate())
	assert.Equal(t, time.Second, format.Duration(48000))
	assert.Equal(t, 500*time.Millisecond, format.Duration(24000))
	assert.Equal(t, time.Duration(0), format.Duration(0))
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "45.2s", audio.FormatDuration(45200*time.Millisecond))
	assert.Equal(t, "5m 30.5s", audio.FormatDuration(5*time.Minute+30500*time.Millisecond))
	assert.Equal(t, "1h 15m", audio.FormatDuration(75*time.Minute))
}

func TestFormatFileSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", audio.FormatFileSize(512))
	assert.Equal(t, "1.5 KB", audio.FormatFileSize(1536))
	assert.Equal(t, "2.0 MB", audio.FormatFileSize(2*1024*1024))
	assert.Equal(t, "1.0 GB", audio.FormatFileSize(1024*1024*1024))
}

func TestFormatHelpers_UnitBoundaries(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1023 B", audio.FormatFileSize(1023))
	assert.Equal(t, "1.0 KB", audio.FormatFileSize(1024))
	assert.Equal(t, "0 B", audio.FormatFileSize(0))
	assert.Equal(t, "59.9s", audio.FormatDuration(59900*time.Millisecond))
	assert.Equal(t, "1m 0.0s", audio.FormatDuration(time.Minute))
	assert.Equal(t, "2h 0m", audio.FormatDuration(2*time.Hour+30*time.Second))
}
