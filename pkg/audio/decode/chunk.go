// ABOUTME: Two-stage chunk decoder
// ABOUTME: Container decode on signature match, raw PCM fallback otherwise
package decode

import (
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
)

// ChunkDecoder decodes network chunks and loaded blobs into buffers at a fixed rate
type ChunkDecoder struct {
	rate       int
	containers map[Container]Decoder
}

// New creates a chunk decoder with every supported container registered
func New(rate int) *ChunkDecoder {
	return &ChunkDecoder{
		rate: rate,
		containers: map[Container]Decoder{
			ContainerWAV:  NewWAV(rate),
			ContainerMP3:  NewMP3(rate),
			ContainerFLAC: NewFLAC(rate),
			ContainerOgg:  NewOggOpus(rate),
		},
	}
}

// Register replaces the decoder used for a container
func (d *ChunkDecoder) Register(c Container, dec Decoder) {
	d.containers[c] = dec
}

// SampleRate returns the rate buffers are produced at
func (d *ChunkDecoder) SampleRate() int {
	return d.rate
}

// Decode decodes one chunk. It never panics on malformed input.
func (d *ChunkDecoder) Decode(data []byte) Result {
	c := Sniff(data)

	var containerErr error
	if dec, ok := d.containers[c]; ok {
		buf, err := safeDecode(dec, data)
		if err == nil && buf != nil && buf.Len() > 0 {
			return Result{Kind: KindContainer, Container: c, Buffer: buf}
		}
		if err == nil {
			err = studioerr.DecodeFailure.New("%s chunk decoded to no samples", c)
		}
		containerErr = err
	}

	buf, err := DecodePCM16(data, d.rate)
	if err != nil {
		return Result{Kind: KindFailed, Container: c, Err: err}
	}

	return Result{Kind: KindRawPCM, Container: c, Buffer: buf, Err: containerErr}
}

// safeDecode turns a panic inside a third-party decoder into a DecodeFailure
func safeDecode(dec Decoder, data []byte) (buf *audio.Buffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, studioerr.DecodeFailure.New("decoder panic: %v", r)
		}
	}()
	return dec.Decode(data)
}
