// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Works on interleaved float32 samples and whole buffers
package resample

import "github.com/Resonate-Protocol/resonate-studio/pkg/audio"

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// Resample converts interleaved input at inputRate to interleaved output at outputRate.
// Returns the number of output samples written.
func (r *Resampler) Resample(input []float32, output []float32) int {
	if len(input) == 0 {
		return 0
	}

	inputFrames := len(input) / r.channels
	outputFrames := len(output) / r.channels

	outIdx := 0
	for outIdx < outputFrames {
		inputIdx := int(r.position)

		// Last input frame has nothing to interpolate towards
		if inputIdx >= inputFrames-1 {
			break
		}

		frac := float32(r.position - float64(inputIdx))

		for ch := 0; ch < r.channels; ch++ {
			s1 := input[inputIdx*r.channels+ch]
			s2 := input[(inputIdx+1)*r.channels+ch]
			output[outIdx*r.channels+ch] = s1*(1-frac) + s2*frac
		}

		outIdx++
		r.position += r.ratio
	}

	// Keep the fractional part for the next chunk
	r.position -= float64(int(r.position))

	return outIdx * r.channels
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// Buffer returns buf converted to rate. A buffer already at rate is returned as is.
func Buffer(buf *audio.Buffer, rate int) *audio.Buffer {
	if buf.SampleRate == rate || buf.Len() == 0 {
		return buf
	}

	channels := buf.NumChannels()
	r := New(buf.SampleRate, rate, channels)
	input := buf.Interleave()
	output := make([]float32, r.OutputSamplesNeeded(len(input)))
	n := r.Resample(input, output)

	return audio.FromInterleaved(output[:n], channels, rate)
}
