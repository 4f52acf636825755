// ABOUTME: WAV container decoder
// ABOUTME: Decodes RIFF/WAVE integer PCM via go-audio/wav
package decode

import (
	"bytes"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/resample"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
	"github.com/go-audio/wav"
)

// NewWAV returns a WAV decoder producing buffers at rate
func NewWAV(rate int) Decoder {
	return DecoderFunc(func(data []byte) (*audio.Buffer, error) {
		d := wav.NewDecoder(bytes.NewReader(data))
		if !d.IsValidFile() {
			return nil, studioerr.DecodeFailure.New("invalid wav data")
		}

		pcm, err := d.FullPCMBuffer()
		if err != nil {
			return nil, studioerr.DecodeFailure.Wrap(err, "wav decode failed")
		}

		bitDepth := int(d.BitDepth)
		if bitDepth < 16 || bitDepth > 32 {
			return nil, studioerr.DecodeFailure.New("unsupported wav bit depth: %d", bitDepth)
		}

		channels := pcm.Format.NumChannels
		scale := float32(int64(1) << (bitDepth - 1))
		samples := make([]float32, len(pcm.Data))
		for i, s := range pcm.Data {
			samples[i] = float32(s) / scale
		}

		buf := audio.FromInterleaved(samples, channels, pcm.Format.SampleRate)
		return resample.Buffer(buf, rate), nil
	})
}
