// ABOUTME: Ogg Opus container decoder
// ABOUTME: Decodes Ogg Opus streams with hraban/opus and libopusfile
package decode

import (
	"bytes"
	"io"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/resample"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
	"gopkg.in/hraban/opus.v2"
)

// opusDecodeRate is the rate libopusfile always decodes at
const opusDecodeRate = 48000

// NewOggOpus returns an Ogg Opus decoder producing buffers at rate
func NewOggOpus(rate int) Decoder {
	return DecoderFunc(func(data []byte) (*audio.Buffer, error) {
		channels := opusHeadChannels(data)
		if channels == 0 {
			return nil, studioerr.DecodeFailure.New("ogg stream has no OpusHead")
		}

		stream, err := opus.NewStream(bytes.NewReader(data))
		if err != nil {
			return nil, studioerr.DecodeFailure.Wrap(err, "failed to open ogg opus stream")
		}
		defer stream.Close()

		// 120ms is the longest opus frame
		pcm := make([]int16, 5760*channels)
		var samples []float32
		for {
			n, err := stream.Read(pcm)
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, studioerr.DecodeFailure.Wrap(err, "opus decode failed")
			}
			for _, s := range pcm[:n*channels] {
				samples = append(samples, audio.SampleFromInt16(s))
			}
		}

		buf := audio.FromInterleaved(samples, channels, opusDecodeRate)
		return resample.Buffer(buf, rate), nil
	})
}

// opusHeadChannels reads the channel count from the OpusHead identification packet
func opusHeadChannels(data []byte) int {
	idx := bytes.Index(data, []byte("OpusHead"))
	if idx < 0 || idx+10 > len(data) {
		return 0
	}
	return int(data[idx+9])
}
