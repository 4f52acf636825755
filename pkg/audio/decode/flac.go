// ABOUTME: FLAC container decoder
// ABOUTME: Decodes complete FLAC streams frame by frame with mewkiz/flac
package decode

import (
	"bytes"
	"io"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/resample"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
	"github.com/mewkiz/flac"
)

// NewFLAC returns a FLAC decoder producing buffers at rate
func NewFLAC(rate int) Decoder {
	return DecoderFunc(func(data []byte) (*audio.Buffer, error) {
		stream, err := flac.New(bytes.NewReader(data))
		if err != nil {
			return nil, studioerr.DecodeFailure.Wrap(err, "failed to decode flac")
		}
		defer stream.Close()

		channels := int(stream.Info.NChannels)
		bitDepth := int(stream.Info.BitsPerSample)
		if channels == 0 || bitDepth == 0 {
			return nil, studioerr.DecodeFailure.New("flac stream info incomplete")
		}
		scale := float32(int64(1) << (bitDepth - 1))

		buf := &audio.Buffer{
			Channels:   make([][]float32, channels),
			SampleRate: int(stream.Info.SampleRate),
		}

		for {
			frame, err := stream.ParseNext()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, studioerr.DecodeFailure.Wrap(err, "flac frame error")
			}

			for ch := 0; ch < channels; ch++ {
				for _, s := range frame.Subframes[ch].Samples[:frame.BlockSize] {
					buf.Channels[ch] = append(buf.Channels[ch], float32(s)/scale)
				}
			}
		}

		return resample.Buffer(buf, rate), nil
	})
}
