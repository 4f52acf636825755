// ABOUTME: Oto-based audio device
// ABOUTME: Feeds graph frames to a persistent oto player as 16-bit PCM
package output

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
	otoRate int
	otoCh   int
)

// Oto plays a graph through the oto library
type Oto struct {
	player *oto.Player
}

// NewOto creates a new Oto device
func NewOto() *Oto {
	return &Oto{}
}

// Start opens the oto context and starts a player reading from g
func (o *Oto) Start(g *Graph) error {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   g.SampleRate(),
			ChannelCount: g.Channels(),
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(op)
		if otoErr == nil {
			<-ready
			otoRate, otoCh = g.SampleRate(), g.Channels()
		}
	})
	if otoErr != nil {
		return fmt.Errorf("failed to create oto context: %w", otoErr)
	}

	// Format can't change after the context exists
	if otoRate != g.SampleRate() || otoCh != g.Channels() {
		return fmt.Errorf("oto context is %dHz %dch, graph wants %dHz %dch",
			otoRate, otoCh, g.SampleRate(), g.Channels())
	}

	o.player = otoCtx.NewPlayer(&graphReader{graph: g})
	// Keep the read-ahead short so the graph clock tracks what is audible
	o.player.SetBufferSize(g.SampleRate() / 20 * g.Channels() * 2)
	o.player.Play()

	slog.Info("audio output initialized", "backend", "oto", "rate", g.SampleRate(), "channels", g.Channels())
	return nil
}

// Close stops the player
func (o *Oto) Close() error {
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	return err
}

// graphReader renders the graph as little-endian 16-bit PCM
type graphReader struct {
	graph   *Graph
	scratch []float32
}

func (r *graphReader) Read(p []byte) (int, error) {
	samples := len(p) / 2
	samples -= samples % r.graph.Channels()
	if samples == 0 {
		return 0, nil
	}
	if cap(r.scratch) < samples {
		r.scratch = make([]float32, samples)
	}
	buf := r.scratch[:samples]
	r.graph.Render(buf)

	for i, s := range buf {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(audio.SampleToInt16(s)))
	}
	return samples * 2, nil
}
