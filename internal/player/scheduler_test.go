// ABOUTME: Tests for the look-ahead scheduler
// ABOUTME: Drives a frame-counting graph clock by hand
package player

import (
	"math"
	"testing"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/output"
)

type placement struct {
	start    float64
	duration float64
}

// recordingTimeline remembers every placement made on the graph
type recordingTimeline struct {
	*output.Graph
	placed []placement
}

func newRecordingTimeline() *recordingTimeline {
	return &recordingTimeline{Graph: output.NewGraph(audio.SampleRate, 1)}
}

func (r *recordingTimeline) Schedule(buf *audio.Buffer, at float64) *output.Source {
	r.placed = append(r.placed, placement{start: at, duration: buf.Duration()})
	return r.Graph.Schedule(buf, at)
}

func chunk(seconds float64) *audio.Buffer {
	buf := audio.NewBuffer(1, int(seconds*audio.SampleRate), audio.SampleRate)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = 0.5
	}
	return buf
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSchedulerBuffersUntilThreshold(t *testing.T) {
	tl := newRecordingTimeline()
	s := NewScheduler(tl, DefaultConfig(), nil)
	s.Begin()

	if !s.Buffering() {
		t.Fatal("expected buffering after Begin")
	}
	if !near(s.NextStart(), 0.1) {
		t.Errorf("expected next start 0.1, got %v", s.NextStart())
	}

	if s.Push(chunk(2)) {
		t.Error("2s buffered should not end buffering")
	}
	if s.Push(chunk(2)) {
		t.Error("4s buffered should not end buffering")
	}
	if !s.Push(chunk(1.5)) {
		t.Error("5.5s buffered should end buffering")
	}
	if s.Buffering() {
		t.Error("expected buffering to be off")
	}
	if s.Finish() {
		t.Error("finish should not report a buffering change when not buffering")
	}
	if !s.Finished() {
		t.Error("expected finished")
	}
}

func TestSchedulerPlacesChunksBackToBack(t *testing.T) {
	tl := newRecordingTimeline()
	s := NewScheduler(tl, DefaultConfig(), nil)
	s.Begin()

	s.Push(chunk(2))
	s.Push(chunk(2))
	s.Push(chunk(1.5))
	s.Finish()

	var ended bool
	for i := 0; i < 100 && !ended; i++ {
		res := s.Tick()
		ended = res.Ended
		tl.Advance(0.1)
	}

	if !ended {
		t.Fatal("expected session to end")
	}
	if len(tl.placed) != 3 {
		t.Fatalf("expected 3 placements, got %d", len(tl.placed))
	}
	if !near(tl.placed[0].start, 0.1) {
		t.Errorf("expected first start at 0.1, got %v", tl.placed[0].start)
	}
	for i := 1; i < len(tl.placed); i++ {
		prev := tl.placed[i-1]
		if !near(tl.placed[i].start, prev.start+prev.duration) {
			t.Errorf("placement %d starts at %v, expected %v", i, tl.placed[i].start, prev.start+prev.duration)
		}
	}
	if !near(s.TotalScheduled(), 5.5) {
		t.Errorf("expected 5.5s scheduled, got %v", s.TotalScheduled())
	}
	if s.Stats().Underruns != 0 {
		t.Errorf("expected no underruns, got %d", s.Stats().Underruns)
	}
}

func TestSchedulerLookAheadLimitsPlacement(t *testing.T) {
	tl := newRecordingTimeline()
	s := NewScheduler(tl, DefaultConfig(), nil)
	s.Begin()
	s.Push(chunk(2))
	s.Push(chunk(2))
	s.Finish()

	res := s.Tick()
	if res.Scheduled != 1 {
		t.Fatalf("expected 1 buffer inside the look-ahead window, got %d", res.Scheduled)
	}

	tl.Advance(1.9)
	if p := s.Progress(); !near(p, 1.8) {
		t.Errorf("expected progress 1.8, got %v", p)
	}

	res = s.Tick()
	if res.Scheduled != 1 {
		t.Errorf("expected second buffer scheduled, got %d", res.Scheduled)
	}
}

func TestSchedulerUnderrunSnapsForward(t *testing.T) {
	tl := newRecordingTimeline()
	s := NewScheduler(tl, DefaultConfig(), nil)
	s.Begin()
	s.Push(chunk(1))
	s.Push(chunk(1))
	s.Finish()

	s.Tick()
	before := s.NextStart()

	tl.Advance(3)
	res := s.Tick()

	if res.Underruns != 1 {
		t.Fatalf("expected 1 underrun, got %d", res.Underruns)
	}
	if !near(tl.placed[1].start, 3) {
		t.Errorf("expected late buffer to start now, got %v", tl.placed[1].start)
	}
	if s.NextStart() < before {
		t.Error("next start must never move backwards")
	}
	if s.Stats().Underruns != 1 {
		t.Errorf("expected stats to count the underrun, got %d", s.Stats().Underruns)
	}
}

func TestSchedulerReentersBuffering(t *testing.T) {
	tl := newRecordingTimeline()
	cfg := DefaultConfig()
	cfg.BufferThreshold = 1
	s := NewScheduler(tl, cfg, nil)
	s.Begin()

	if !s.Push(chunk(1)) {
		t.Fatal("expected threshold reached")
	}

	// the only chunk is still held back, so nothing can be scheduled
	tl.Advance(0.5)
	res := s.Tick()
	if !res.BufferingStarted {
		t.Fatal("expected buffering to restart when the queue runs dry")
	}
	if !s.Buffering() {
		t.Error("expected buffering state")
	}

	res = s.Tick()
	if res.Scheduled != 0 || res.BufferingStarted {
		t.Error("tick while buffering must not schedule")
	}

	before := s.NextStart()
	if !s.Push(chunk(1)) {
		t.Fatal("expected buffering to end")
	}
	if s.NextStart() < before {
		t.Error("next start must never move backwards")
	}
	if !near(s.NextStart(), tl.Now()+cfg.StartDelay) {
		t.Errorf("expected schedule re-anchored to now, got %v", s.NextStart())
	}
	if s.Stats().Buffering != 2 {
		t.Errorf("expected 2 buffering entries, got %d", s.Stats().Buffering)
	}
}

func TestSchedulerFadesHeldChunks(t *testing.T) {
	tl := newRecordingTimeline()
	s := NewScheduler(tl, DefaultConfig(), nil)
	s.Begin()

	first := chunk(1)
	last := chunk(1)
	s.Push(first)
	s.Push(last)

	if first.Channels[0][0] != 0 {
		t.Error("expected queued chunk to be micro-faded")
	}
	if last.Channels[0][0] != 0.5 {
		t.Error("held chunk must not be faded until its successor or the end arrives")
	}

	s.Finish()
	if last.Channels[0][last.Len()-1] > 0.001 {
		t.Error("expected final chunk to be end-faded")
	}
}

func TestSchedulerIgnoresPushAfterReset(t *testing.T) {
	tl := newRecordingTimeline()
	s := NewScheduler(tl, DefaultConfig(), nil)
	s.Begin()
	s.Push(chunk(1))
	s.Reset()

	if s.Push(chunk(1)) {
		t.Error("push after reset must be ignored")
	}
	if !s.Drained() {
		t.Error("expected nothing queued after reset")
	}
	if s.Stats().Received != 0 {
		t.Errorf("expected zero received, got %d", s.Stats().Received)
	}
}
