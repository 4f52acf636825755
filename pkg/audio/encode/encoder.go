// ABOUTME: Encoder interface and constructor
// ABOUTME: Selects an output format by name
package encode

import (
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
)

// DefaultBitrate is the compressed export bitrate in bits per second
const DefaultBitrate = 128000

// Encoder encodes a buffer into a complete mono file
type Encoder interface {
	// Encode converts the buffer's first channel to encoded bytes
	Encode(buf *audio.Buffer) ([]byte, error)

	// MimeType describes the produced bytes
	MimeType() string

	// Extension is the file extension without a dot
	Extension() string
}

// New returns the encoder for format ("opus", "ogg" or "wav")
func New(format string, bitrate int) (Encoder, error) {
	switch strings.ToLower(format) {
	case "opus", "ogg", "":
		return NewOggOpus(bitrate), nil
	case "wav":
		return NewWAV(), nil
	}
	return nil, fmt.Errorf("unsupported export format: %s", format)
}

// Quantize clips and converts the first channel of buf to signed 16-bit samples
func Quantize(buf *audio.Buffer) []int16 {
	if buf.NumChannels() == 0 {
		return nil
	}
	out := make([]int16, buf.Len())
	for i, s := range buf.Channels[0] {
		out[i] = audio.SampleToInt16(s)
	}
	return out
}
