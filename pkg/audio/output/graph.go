// ABOUTME: Audio graph with a frame-counting clock
// ABOUTME: Mixes scheduled buffer sources and applies software volume
package output

import (
	"math"
	"sync"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
)

// Source is one buffer scheduled on the graph
type Source struct {
	buf        *audio.Buffer
	startFrame int64
	offset     int
	stopped    bool
}

// Graph mixes sources into interleaved output. Its clock advances only as frames are rendered.
type Graph struct {
	mu       sync.Mutex
	rate     int
	channels int
	frame    int64
	volume   int
	muted    bool
	sources  []*Source
	scratch  []float32
	tap      *tap
}

// NewGraph creates a graph rendering at rate with the given channel count
func NewGraph(rate, channels int) *Graph {
	return &Graph{
		rate:     rate,
		channels: channels,
		volume:   100,
		tap:      newTap(AnalysisSize),
	}
}

// SampleRate returns the render rate
func (g *Graph) SampleRate() int { return g.rate }

// Channels returns the output channel count
func (g *Graph) Channels() int { return g.channels }

// Now returns the clock position in seconds
func (g *Graph) Now() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return float64(g.frame) / float64(g.rate)
}

// Schedule plays buf starting at clock time at. A time in the past starts immediately.
func (g *Graph) Schedule(buf *audio.Buffer, at float64) *Source {
	g.mu.Lock()
	defer g.mu.Unlock()

	start := int64(math.Round(at * float64(g.rate)))
	if start < g.frame {
		start = g.frame
	}
	src := &Source{buf: buf, startFrame: start}
	g.sources = append(g.sources, src)
	return src
}

// Play starts buf now, skipping the first offset seconds
func (g *Graph) Play(buf *audio.Buffer, offset float64) *Source {
	g.mu.Lock()
	defer g.mu.Unlock()

	skip := int(offset * float64(buf.SampleRate))
	if skip < 0 {
		skip = 0
	}
	src := &Source{buf: buf, startFrame: g.frame, offset: skip}
	g.sources = append(g.sources, src)
	return src
}

// Stop silences the source. Safe to call more than once.
func (g *Graph) Stop(src *Source) {
	if src == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	src.stopped = true
	g.prune()
}

// StopAll silences every source
func (g *Graph) StopAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, src := range g.sources {
		src.stopped = true
	}
	g.sources = nil
}

// Active returns the number of sources that are playing or waiting to play
func (g *Graph) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sources)
}

// Render mixes len(out)/channels frames into out and advances the clock
func (g *Graph) Render(out []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	clear(out)
	frames := len(out) / g.channels
	gain := float32(getVolumeMultiplier(g.volume, g.muted))

	for _, src := range g.sources {
		srcChannels := src.buf.NumChannels()
		srcLen := src.buf.Len()
		for i := 0; i < frames; i++ {
			idx := g.frame + int64(i) - src.startFrame + int64(src.offset)
			if idx < int64(src.offset) {
				continue
			}
			if idx >= int64(srcLen) {
				break
			}
			for ch := 0; ch < g.channels; ch++ {
				// Mono sources feed every output channel
				sc := min(ch, srcChannels-1)
				out[i*g.channels+ch] += src.buf.Channels[sc][idx] * gain
			}
		}
	}

	for i := range out {
		out[i] = audio.Clip(out[i])
	}
	g.tap.capture(out, g.channels)

	g.frame += int64(frames)
	g.prune()
}

// Levels measures the last AnalysisSize rendered frames, after volume
func (g *Graph) Levels() Levels {
	g.mu.Lock()
	samples := g.tap.samples(AnalysisSize)
	g.mu.Unlock()
	return measure(samples)
}

// FrequencyData returns the magnitude spectrum of the last rendered frames in
// bands of equal width, each in [0, 1]
func (g *Graph) FrequencyData(bands int) []float64 {
	g.mu.Lock()
	samples := g.tap.samples(AnalysisSize)
	g.mu.Unlock()
	return spectrum(samples, bands)
}

// Advance renders and discards seconds of audio
func (g *Graph) Advance(seconds float64) {
	frames := int(math.Round(seconds * float64(g.rate)))
	for frames > 0 {
		n := min(frames, 4096)
		if cap(g.scratch) < n*g.channels {
			g.scratch = make([]float32, n*g.channels)
		}
		g.Render(g.scratch[:n*g.channels])
		frames -= n
	}
}

// prune drops stopped and finished sources; callers hold mu
func (g *Graph) prune() {
	kept := g.sources[:0]
	for _, src := range g.sources {
		end := src.startFrame + int64(src.buf.Len()-src.offset)
		if src.stopped || g.frame >= end {
			continue
		}
		kept = append(kept, src)
	}
	clear(g.sources[len(kept):])
	g.sources = kept
}

// SetVolume sets the volume (0-100)
func (g *Graph) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	g.mu.Lock()
	g.volume = volume
	g.mu.Unlock()
}

// SetMuted sets mute state
func (g *Graph) SetMuted(muted bool) {
	g.mu.Lock()
	g.muted = muted
	g.mu.Unlock()
}

// Volume returns the current volume
func (g *Graph) Volume() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.volume
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
