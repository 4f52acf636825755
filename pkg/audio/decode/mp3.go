// ABOUTME: MP3 container decoder
// ABOUTME: Decodes whole MP3 chunks with go-mp3 and resamples them
package decode

import (
	"bytes"
	"io"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/resample"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
	"github.com/hajimehoshi/go-mp3"
)

// NewMP3 returns an MP3 decoder producing buffers at rate
func NewMP3(rate int) Decoder {
	return DecoderFunc(func(data []byte) (*audio.Buffer, error) {
		decoder, err := mp3.NewDecoder(bytes.NewReader(data))
		if err != nil {
			return nil, studioerr.DecodeFailure.Wrap(err, "failed to create mp3 decoder")
		}

		// go-mp3 always yields 16-bit little-endian stereo
		pcm, err := io.ReadAll(decoder)
		if err != nil {
			return nil, studioerr.DecodeFailure.Wrap(err, "mp3 decode error")
		}
		if len(pcm) < 4 {
			return nil, studioerr.DecodeFailure.New("mp3 chunk produced no samples")
		}

		buf := audio.FromInterleaved(audio.PCM16ToFloat(pcm), 2, decoder.SampleRate())
		return resample.Buffer(buf, rate), nil
	})
}
