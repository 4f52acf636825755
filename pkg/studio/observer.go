// ABOUTME: Engine state snapshots and collaborator interfaces
// ABOUTME: Observer, Recorder and Metrics hooks injected into the engine
package studio

import (
	"context"

	"github.com/Resonate-Protocol/resonate-studio/internal/library"
	"github.com/Resonate-Protocol/resonate-studio/internal/player"
)

// TransportState is the engine's playback mode
type TransportState = player.TransportState

const (
	Idle            = player.Idle
	StreamingLive   = player.StreamingLive
	StreamingPaused = player.StreamingPaused
	LoadedSeekable  = player.LoadedSeekable
	LoadedPaused    = player.LoadedPaused
)

// Snapshot is the engine state published after every transition
type Snapshot struct {
	IsPlaying    bool           `json:"is_playing"`
	IsBuffering  bool           `json:"is_buffering"`
	IsGenerating bool           `json:"is_generating"`
	Progress     float64        `json:"progress"`
	Duration     float64        `json:"duration"`
	Transport    TransportState `json:"-"`
	State        string         `json:"state"`
}

// Observer receives state snapshots
type Observer interface {
	Publish(Snapshot)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Snapshot)

// Publish calls f(s)
func (f ObserverFunc) Publish(s Snapshot) { f(s) }

// Observers fans a snapshot out to several observers
type Observers []Observer

// Publish forwards s to every observer
func (o Observers) Publish(s Snapshot) {
	for _, obs := range o {
		if obs != nil {
			obs.Publish(s)
		}
	}
}

// Recorder persists finished recordings
type Recorder interface {
	Save(ctx context.Context, rec library.Record) error
}

// Metrics receives pipeline counters
type Metrics interface {
	ChunkDecoded(kind string)
	DecodeFailed()
	Underruns(n int)
	ProviderRetry()
	BufferingStarted()
	Exported(format string)
}

type noopMetrics struct{}

func (noopMetrics) ChunkDecoded(string) {}
func (noopMetrics) DecodeFailed()       {}
func (noopMetrics) Underruns(int)       {}
func (noopMetrics) ProviderRetry()      {}
func (noopMetrics) BufferingStarted()   {}
func (noopMetrics) Exported(string)     {}
