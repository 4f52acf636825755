// ABOUTME: WAV encoder
// ABOUTME: Writes mono 16-bit WAV files through beep's wav package
package encode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// WAV encodes buffers as 16-bit mono WAV
type WAV struct{}

// NewWAV creates a WAV encoder
func NewWAV() *WAV {
	return &WAV{}
}

func (e *WAV) MimeType() string  { return "audio/wav" }
func (e *WAV) Extension() string { return "wav" }

// Encode converts the buffer's first channel to WAV bytes
func (e *WAV) Encode(buf *audio.Buffer) ([]byte, error) {
	var data []float32
	if buf.NumChannels() > 0 {
		data = buf.Channels[0]
	}

	pos := 0
	streamer := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= len(data) {
			return 0, false
		}
		n := 0
		for n < len(samples) && pos < len(data) {
			s := float64(audio.Clip(data[pos]))
			samples[n] = [2]float64{s, s}
			n++
			pos++
		}
		return n, true
	})

	format := beep.Format{
		SampleRate:  beep.SampleRate(buf.SampleRate),
		NumChannels: 1,
		Precision:   2,
	}

	var out memFile
	if err := wav.Encode(&out, streamer, format); err != nil {
		return nil, fmt.Errorf("wav encode error: %w", err)
	}
	return out.data, nil
}

// memFile is an in-memory io.WriteSeeker; wav headers are patched after the samples are written
type memFile struct {
	data []byte
	pos  int
}

func (f *memFile) Write(p []byte) (int, error) {
	if end := f.pos + len(p); end > len(f.data) {
		f.data = append(f.data, make([]byte, end-len(f.data))...)
	}
	n := copy(f.data[f.pos:], p)
	f.pos += n
	return n, nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(f.pos) + offset
	case io.SeekEnd:
		next = int64(len(f.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative seek position: %d", next)
	}
	f.pos = int(next)
	return next, nil
}
