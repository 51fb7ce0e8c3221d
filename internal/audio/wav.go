package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// WAV layout constants.
const (
	// WAVHeaderSize is the size of the canonical RIFF/WAVE header.
	WAVHeaderSize = 44

	riffChunkBaseSize = 36
	fmtChunkSize      = 16
	formatPCM         = 1
)

// ErrPayloadTooLarge is returned when the PCM payload cannot be described by the
// 32-bit RIFF size fields.
var ErrPayloadTooLarge = errors.New("pcm payload too large for a wav container")

// EncodeWAV wraps raw PCM bytes in a canonical 44-byte RIFF/WAVE header.
//
// The bytes are trusted to already match format: nothing is resampled, mixed,
// or converted. An empty payload yields a valid zero-length file.
func EncodeWAV(pcm []byte, format Format) ([]byte, error) {
	err := format.Validate()
	if err != nil {
		return nil, err
	}

	if uint64(len(pcm)) > math.MaxUint32-riffChunkBaseSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(pcm))
	}

	dataSize := uint32(len(pcm)) //nolint:gosec // bounded above

	wav := make([]byte, WAVHeaderSize+len(pcm))

	// RIFF header
	copy(wav[0:4], "RIFF")
	binary.LittleEndian.PutUint32(wav[4:8], riffChunkBaseSize+dataSize)
	copy(wav[8:12], "WAVE")

	// fmt subchunk
	copy(wav[12:16], "fmt ")
	binary.LittleEndian.PutUint32(wav[16:20], fmtChunkSize)
	binary.LittleEndian.PutUint16(wav[20:22], formatPCM)
	binary.LittleEndian.PutUint16(wav[22:24], uint16(format.Channels))      //nolint:gosec // validated
	binary.LittleEndian.PutUint32(wav[24:28], uint32(format.SampleRate))    //nolint:gosec // validated
	binary.LittleEndian.PutUint32(wav[28:32], uint32(format.ByteRate()))    //nolint:gosec // validated
	binary.LittleEndian.PutUint16(wav[32:34], uint16(format.BlockAlign()))  //nolint:gosec // validated
	binary.LittleEndian.PutUint16(wav[34:36], uint16(format.BitsPerSample)) //nolint:gosec // validated

	// data subchunk
	copy(wav[36:40], "data")
	binary.LittleEndian.PutUint32(wav[40:44], dataSize)
	copy(wav[WAVHeaderSize:], pcm)

	return wav, nil
}
