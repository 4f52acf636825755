// ABOUTME: Reconstruction of accumulated raw stream bytes
// ABOUTME: Joins chunks into one PCM buffer and encodes it
package encode

import (
	"bytes"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
)

// wavHeaderSize is the canonical RIFF/WAVE header length
const wavHeaderSize = 44

// JoinRaw joins accumulated chunks into one mono 16-bit PCM buffer at rate.
// The joined bytes are trimmed to even length and a leading RIFF header is
// stripped. Returns nil when there are no samples.
func JoinRaw(chunks [][]byte, rate int) *audio.Buffer {
	joined := bytes.Join(chunks, nil)
	joined = joined[:len(joined)&^1]

	if bytes.HasPrefix(joined, []byte("RIFF")) {
		if len(joined) <= wavHeaderSize {
			return nil
		}
		joined = joined[wavHeaderSize:]
	}
	if len(joined) < 2 {
		return nil
	}

	return audio.FromInterleaved(audio.PCM16ToFloat(joined), 1, rate)
}

// EncodeRaw encodes accumulated chunks. It returns nil, nil when nothing was accumulated.
func EncodeRaw(enc Encoder, chunks [][]byte) ([]byte, error) {
	buf := JoinRaw(chunks, audio.SampleRate)
	if buf == nil {
		return nil, nil
	}
	return enc.Encode(buf)
}
