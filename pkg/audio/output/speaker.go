// ABOUTME: beep speaker audio device
// ABOUTME: Streams graph frames through gopxl/beep's speaker package
package output

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Speaker plays a graph through the beep speaker
type Speaker struct {
	started bool
}

// NewSpeaker creates a beep speaker device
func NewSpeaker() *Speaker {
	return &Speaker{}
}

// Start initializes the speaker and plays the graph as an endless streamer
func (s *Speaker) Start(g *Graph) error {
	sr := beep.SampleRate(g.SampleRate())
	if err := speaker.Init(sr, sr.N(time.Second/20)); err != nil {
		return fmt.Errorf("failed to init speaker: %w", err)
	}
	speaker.Play(&graphStreamer{graph: g})
	s.started = true

	slog.Info("audio output initialized", "backend", "speaker", "rate", g.SampleRate())
	return nil
}

// Close stops the speaker
func (s *Speaker) Close() error {
	if !s.started {
		return nil
	}
	speaker.Clear()
	speaker.Close()
	s.started = false
	return nil
}

// graphStreamer adapts a Graph to beep.Streamer; it never ends
type graphStreamer struct {
	graph   *Graph
	scratch []float32
}

func (s *graphStreamer) Stream(samples [][2]float64) (int, bool) {
	ch := s.graph.Channels()
	n := len(samples) * ch
	if cap(s.scratch) < n {
		s.scratch = make([]float32, n)
	}
	buf := s.scratch[:n]
	s.graph.Render(buf)

	for i := range samples {
		left := float64(buf[i*ch])
		right := left
		if ch > 1 {
			right = float64(buf[i*ch+1])
		}
		samples[i] = [2]float64{left, right}
	}
	return len(samples), true
}

func (s *graphStreamer) Err() error { return nil }
