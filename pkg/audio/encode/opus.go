// ABOUTME: Ogg Opus encoder
// ABOUTME: Encodes mono 16-bit frames with libopus and muxes them into Ogg pages
package encode

import (
	"bytes"
	"fmt"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/resample"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"gopkg.in/hraban/opus.v2"
)

const (
	// FrameSize is 20ms at 48kHz
	FrameSize = audio.SampleRate / 50

	// maxPacketSize bounds a single encoded opus packet
	maxPacketSize = 4000

	// preSkip is the pre-skip the ogg writer puts in the OpusHead header
	preSkip = 3840

	// encoderDelay is the libopus lookahead for the audio application at 48kHz
	encoderDelay = 312

	// leadIn samples of silence make the decoder's pre-skip land on silence,
	// so the first real sample is the first one played
	leadIn = preSkip - encoderDelay
)

// OggOpus encodes mono audio into an Ogg Opus file
type OggOpus struct {
	bitrate int
}

// NewOggOpus creates an Ogg Opus encoder at the given bitrate
func NewOggOpus(bitrate int) *OggOpus {
	if bitrate <= 0 {
		bitrate = DefaultBitrate
	}
	return &OggOpus{bitrate: bitrate}
}

func (e *OggOpus) MimeType() string  { return "audio/ogg" }
func (e *OggOpus) Extension() string { return "ogg" }

// Encode converts the buffer to Ogg Opus bytes
func (e *OggOpus) Encode(buf *audio.Buffer) ([]byte, error) {
	buf = resample.Buffer(buf, audio.SampleRate)

	encoder, err := opus.NewEncoder(audio.SampleRate, 1, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	if err := encoder.SetBitrate(e.bitrate); err != nil {
		return nil, fmt.Errorf("failed to set bitrate: %w", err)
	}

	var out bytes.Buffer
	writer, err := oggwriter.NewWith(&out, audio.SampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create ogg writer: %w", err)
	}

	pcm := append(make([]int16, leadIn), Quantize(buf)...)
	frame := make([]int16, FrameSize)
	packet := make([]byte, maxPacketSize)

	// Page granules start at 1 and lag the audio by one frame. The final
	// granule minus preSkip is the decoded length, so enough frames are
	// written for it to cover every real sample.
	samples := len(pcm) - leadIn
	frames := (samples+preSkip-1+FrameSize-1)/FrameSize + 1

	var timestamp uint32
	var seq uint16
	for f := 0; f < frames; f++ {
		n := 0
		if off := f * FrameSize; off < len(pcm) {
			n = copy(frame, pcm[off:])
		}
		clear(frame[n:])

		size, err := encoder.Encode(frame, packet)
		if err != nil {
			return nil, fmt.Errorf("opus encode error: %w", err)
		}
		err = writer.WriteRTP(&rtp.Packet{
			Header:  rtp.Header{Timestamp: timestamp, SequenceNumber: seq},
			Payload: append([]byte(nil), packet[:size]...),
		})
		if err != nil {
			return nil, fmt.Errorf("ogg write error: %w", err)
		}
		timestamp += FrameSize
		seq++
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close ogg writer: %w", err)
	}

	return out.Bytes(), nil
}
