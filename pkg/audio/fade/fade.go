// ABOUTME: Edge fades that mask splice clicks between chunks
// ABOUTME: Micro-fade for interior chunks, end fade for the final chunk
package fade

import "github.com/Resonate-Protocol/resonate-studio/pkg/audio"

const (
	// MicroFadeDuration is the ramp length applied at every splice point
	MicroFadeDuration = 0.005

	// EndFadeDuration is the fade-out applied to the last chunk of a stream
	EndFadeDuration = 0.2
)

// Transformer modifies a buffer in place
type Transformer func(buf *audio.Buffer)

// Chain applies transformers in order
func Chain(ts ...Transformer) Transformer {
	return func(buf *audio.Buffer) {
		for _, t := range ts {
			t(buf)
		}
	}
}

// Samples converts seconds to a whole sample count at rate
func Samples(seconds float64, rate int) int {
	return int(seconds * float64(rate))
}

// RampIn scales the first n samples by i/n
func RampIn(data []float32, n int) {
	n = min(n, len(data))
	for i := 0; i < n; i++ {
		data[i] *= float32(i) / float32(n)
	}
}

// RampOut scales the last n samples so the final sample reaches zero
func RampOut(data []float32, n int) {
	n = min(n, len(data))
	last := len(data) - 1
	for i := 0; i < n; i++ {
		data[last-i] *= float32(i) / float32(n)
	}
}

// MicroFade ramps every channel in and out over MicroFadeDuration.
// On buffers shorter than two ramps each ramp covers half the buffer.
func MicroFade(buf *audio.Buffer) {
	n := Samples(MicroFadeDuration, buf.SampleRate)
	for _, data := range buf.Channels {
		ramp := min(n, len(data)/2)
		RampIn(data, ramp)
		RampOut(data, ramp)
	}
}

// EndFade ramps every channel in over MicroFadeDuration and out over EndFadeDuration
func EndFade(buf *audio.Buffer) {
	in := Samples(MicroFadeDuration, buf.SampleRate)
	out := Samples(EndFadeDuration, buf.SampleRate)
	for _, data := range buf.Channels {
		RampIn(data, in)

		start := max(0, len(data)-out)
		for i := 0; start+i < len(data); i++ {
			data[start+i] *= 1 - float32(i)/float32(out)
		}
	}
}
