// ABOUTME: Analysis tap on the output graph
// ABOUTME: Keeps the most recent mono mix for level meters and spectrum display
package output

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// AnalysisSize is the number of frames kept for analysis. A power of two.
const AnalysisSize = 2048

// Levels describes the loudness of the most recently rendered audio
type Levels struct {
	RMS  float64
	Peak float64
}

// tap is a ring buffer of the rendered mono mix; guarded by the graph mutex
type tap struct {
	buf []float64
	pos int
}

func newTap(size int) *tap {
	return &tap{buf: make([]float64, size)}
}

// capture averages each interleaved frame of out into the ring
func (t *tap) capture(out []float32, channels int) {
	size := len(t.buf)
	for i := 0; i+channels <= len(out); i += channels {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += out[i+ch]
		}
		t.buf[t.pos] = float64(sum) / float64(channels)
		t.pos = (t.pos + 1) % size
	}
}

// samples returns the last n captured samples in chronological order
func (t *tap) samples(n int) []float64 {
	size := len(t.buf)
	n = min(n, size)
	out := make([]float64, n)
	start := (t.pos - n + size) % size
	for i := range n {
		out[i] = t.buf[(start+i)%size]
	}
	return out
}

func measure(samples []float64) Levels {
	if len(samples) == 0 {
		return Levels{}
	}
	var sum, peak float64
	for _, s := range samples {
		sum += s * s
		peak = max(peak, math.Abs(s))
	}
	return Levels{RMS: math.Sqrt(sum / float64(len(samples))), Peak: peak}
}

// spectrum groups the Hann-windowed magnitude spectrum of samples into bands
// of equal width, skipping the DC bin. Values are scaled so a full scale sine
// peaks near 1.
func spectrum(samples []float64, bands int) []float64 {
	n := len(samples)
	if bands <= 0 || n < 2 {
		return nil
	}

	windowed := make([]float64, n)
	for i, s := range samples {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		windowed[i] = s * w
	}

	coeffs := fourier.NewFFT(n).Coefficients(nil, windowed)
	bins := coeffs[1:]
	bands = min(bands, len(bins))

	// A Hann window halves the amplitude of a bin-centred sine
	scale := 4 / float64(n)
	out := make([]float64, bands)
	for b := range bands {
		from := b * len(bins) / bands
		to := (b + 1) * len(bins) / bands
		for _, c := range bins[from:to] {
			out[b] = max(out[b], cmplx.Abs(c)*scale)
		}
		out[b] = min(out[b], 1)
	}
	return out
}
