// ABOUTME: Raw PCM fallback decoder
// ABOUTME: Reads signed 16-bit little-endian mono samples
package decode

import (
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
)

// WAVHeaderSize is the length of a canonical RIFF/WAVE header
const WAVHeaderSize = 44

// DecodePCM16 reads data as mono 16-bit PCM at rate.
// An odd trailing byte is dropped.
func DecodePCM16(data []byte, rate int) (*audio.Buffer, error) {
	even := len(data) &^ 1
	if even < 2 {
		return nil, studioerr.DecodeFailure.New("raw pcm chunk too short: %d bytes", len(data))
	}

	return audio.FromInterleaved(audio.PCM16ToFloat(data[:even]), 1, rate), nil
}
