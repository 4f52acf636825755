// ABOUTME: Audio type definitions
// ABOUTME: Defines decoded float buffers and 16-bit PCM sample conversions
package audio

import (
	"encoding/binary"

	"github.com/chewxy/math32"
)

const (
	// SampleRate is the rate every decoded buffer is normalized to
	SampleRate = 48000

	// 16-bit quantization scales
	Max16Bit = 0x7FFF
	Min16Bit = 0x8000
)

// Format describes audio stream format
type Format struct {
	SampleRate int
	Channels   int
}

// Buffer holds decoded PCM audio as one float32 slice per channel
type Buffer struct {
	Channels   [][]float32
	SampleRate int
}

// NewBuffer allocates a silent buffer
func NewBuffer(channels, frames, sampleRate int) *Buffer {
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
	}
	return &Buffer{Channels: data, SampleRate: sampleRate}
}

// FromInterleaved splits interleaved samples into a per-channel buffer
func FromInterleaved(samples []float32, channels, sampleRate int) *Buffer {
	if channels < 1 {
		channels = 1
	}
	frames := len(samples) / channels
	buf := NewBuffer(channels, frames, sampleRate)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			buf.Channels[ch][i] = samples[i*channels+ch]
		}
	}
	return buf
}

// NumChannels returns the channel count
func (b *Buffer) NumChannels() int {
	return len(b.Channels)
}

// Len returns the number of frames
func (b *Buffer) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the length in seconds
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return float64(b.Len()) / float64(b.SampleRate)
}

// Format returns the buffer's rate and channel count
func (b *Buffer) Format() Format {
	return Format{SampleRate: b.SampleRate, Channels: b.NumChannels()}
}

// Clone returns a deep copy
func (b *Buffer) Clone() *Buffer {
	return b.Slice(0, b.Len())
}

// Slice copies frames [from, to) into a new buffer
func (b *Buffer) Slice(from, to int) *Buffer {
	if from < 0 {
		from = 0
	}
	if to > b.Len() {
		to = b.Len()
	}
	if to < from {
		to = from
	}
	out := NewBuffer(b.NumChannels(), to-from, b.SampleRate)
	for ch, data := range b.Channels {
		copy(out.Channels[ch], data[from:to])
	}
	return out
}

// Interleave flattens the buffer into interleaved samples
func (b *Buffer) Interleave() []float32 {
	channels := b.NumChannels()
	frames := b.Len()
	out := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = b.Channels[ch][i]
		}
	}
	return out
}

// Clip limits a sample to [-1, 1]
func Clip(sample float32) float32 {
	return math32.Max(-1, math32.Min(1, sample))
}

// SampleFromInt16 converts a signed 16-bit sample to float
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768
}

// SampleToInt16 clips and quantizes a float sample.
// Negative values scale by 0x8000, positive by 0x7FFF.
func SampleToInt16(sample float32) int16 {
	s := Clip(sample)
	if s < 0 {
		return int16(s * Min16Bit)
	}
	return int16(s * Max16Bit)
}

// PCM16ToFloat reads little-endian signed 16-bit samples. A trailing odd byte is dropped.
func PCM16ToFloat(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	return out
}

// FloatToPCM16 quantizes samples to little-endian signed 16-bit bytes
func FloatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(SampleToInt16(s)))
	}
	return out
}
