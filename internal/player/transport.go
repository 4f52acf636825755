// ABOUTME: Transport state machine for live streams and loaded buffers
// ABOUTME: Enumerates playback modes and the transitions between them
package player

// TransportState is the current playback mode
type TransportState int

const (
	Idle TransportState = iota
	StreamingLive
	StreamingPaused
	LoadedSeekable
	LoadedPaused
)

func (s TransportState) String() string {
	switch s {
	case StreamingLive:
		return "streaming"
	case StreamingPaused:
		return "streaming_paused"
	case LoadedSeekable:
		return "loaded"
	case LoadedPaused:
		return "loaded_paused"
	default:
		return "idle"
	}
}

// Playing reports whether audio is being produced in this state
func (s TransportState) Playing() bool {
	return s == StreamingLive || s == LoadedSeekable
}

// Loaded reports whether a fully decoded buffer backs this state
func (s TransportState) Loaded() bool {
	return s == LoadedSeekable || s == LoadedPaused
}

// Streaming reports whether a live session backs this state
func (s TransportState) Streaming() bool {
	return s == StreamingLive || s == StreamingPaused
}

// OnPlay returns the state after a play command and whether it changed
func (s TransportState) OnPlay() (TransportState, bool) {
	switch s {
	case StreamingPaused:
		return StreamingLive, true
	case LoadedPaused:
		return LoadedSeekable, true
	}
	return s, false
}

// OnPause returns the state after a pause command and whether it changed
func (s TransportState) OnPause() (TransportState, bool) {
	switch s {
	case StreamingLive:
		return StreamingPaused, true
	case LoadedSeekable:
		return LoadedPaused, true
	}
	return s, false
}
