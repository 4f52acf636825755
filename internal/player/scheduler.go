// ABOUTME: Look-ahead playback scheduler for streamed chunks
// ABOUTME: Queues faded buffers and places them back to back on the audio clock
package player

import (
	"log/slog"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/fade"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/output"
)

// Timeline is the hardware clock buffers are scheduled against
type Timeline interface {
	Now() float64
	Schedule(buf *audio.Buffer, at float64) *output.Source
}

// Config holds scheduler timing, all in seconds
type Config struct {
	// LookAhead is how far past now buffers get scheduled
	LookAhead float64

	// StartDelay is the margin used when anchoring the schedule to now
	StartDelay float64

	// BufferThreshold is the held duration needed to leave buffering
	BufferThreshold float64
}

// DefaultConfig returns the standard streaming timings
func DefaultConfig() Config {
	return Config{
		LookAhead:       0.3,
		StartDelay:      0.1,
		BufferThreshold: 5,
	}
}

// SchedulerStats tracks scheduler metrics
type SchedulerStats struct {
	Received  int64
	Scheduled int64
	Underruns int64
	Buffering int64
}

// TickResult summarizes one scheduler poll
type TickResult struct {
	Scheduled        int
	Underruns        int
	BufferingStarted bool
	Ended            bool
	Progress         float64
}

// Scheduler owns the state of one streaming session. It is not safe for
// concurrent use; the engine serializes access.
type Scheduler struct {
	cfg      Config
	timeline Timeline
	log      *slog.Logger

	queue     []*audio.Buffer
	held      *audio.Buffer
	nextStart float64
	finished  bool
	buffering bool
	scheduled float64

	stats SchedulerStats
}

// NewScheduler creates an idle scheduler
func NewScheduler(timeline Timeline, cfg Config, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		timeline: timeline,
		log:      log,
		finished: true,
	}
}

// Begin starts a new session: buffering, anchored StartDelay after now
func (s *Scheduler) Begin() {
	s.Reset()
	s.finished = false
	s.buffering = true
	s.nextStart = s.timeline.Now() + s.cfg.StartDelay
	s.stats.Buffering++
}

// Reset drops all queued audio and marks the session finished
func (s *Scheduler) Reset() {
	s.queue = nil
	s.held = nil
	s.nextStart = 0
	s.finished = true
	s.buffering = false
	s.scheduled = 0
	s.stats = SchedulerStats{}
}

// Push accepts the next decoded chunk. The chunk is held back until its
// successor arrives so that only the final chunk gets the end fade.
// Returns true if this push ended buffering.
func (s *Scheduler) Push(buf *audio.Buffer) bool {
	if s.finished {
		return false
	}
	s.stats.Received++

	if s.held != nil {
		fade.MicroFade(s.held)
		s.queue = append(s.queue, s.held)
	}
	s.held = buf

	if s.buffering && s.BufferedDuration() >= s.cfg.BufferThreshold {
		s.stopBuffering()
		return true
	}
	return false
}

// Finish marks the stream complete. The held chunk gets the end fade and is
// queued. Returns true if buffering ended.
func (s *Scheduler) Finish() bool {
	if s.held != nil {
		fade.EndFade(s.held)
		s.queue = append(s.queue, s.held)
		s.held = nil
	}
	s.finished = true

	if s.buffering {
		s.stopBuffering()
		return true
	}
	return false
}

// Tick runs one poll against the timeline
func (s *Scheduler) Tick() TickResult {
	var res TickResult
	now := s.timeline.Now()

	if s.buffering {
		res.Progress = s.progress(now)
		return res
	}

	for len(s.queue) > 0 && s.nextStart < now+s.cfg.LookAhead {
		if s.nextStart < now {
			s.log.Warn("underrun, snapping schedule forward",
				"behind", now-s.nextStart, "queued", len(s.queue))
			s.nextStart = now
			res.Underruns++
			s.stats.Underruns++
		}

		buf := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]

		s.timeline.Schedule(buf, s.nextStart)
		s.nextStart += buf.Duration()
		s.scheduled += buf.Duration()
		res.Scheduled++
		s.stats.Scheduled++
	}

	if len(s.queue) == 0 && !s.finished && s.nextStart < now+s.cfg.StartDelay {
		s.buffering = true
		res.BufferingStarted = true
		s.stats.Buffering++
		s.log.Info("buffering", "next_start", s.nextStart, "now", now)
	}

	if s.finished && len(s.queue) == 0 && now > s.nextStart {
		res.Ended = true
	}

	res.Progress = s.progress(now)
	return res
}

func (s *Scheduler) stopBuffering() {
	s.buffering = false
	s.nextStart = max(s.nextStart, s.timeline.Now()+s.cfg.StartDelay)
	s.log.Info("buffering complete", "buffered", s.BufferedDuration(), "next_start", s.nextStart)
}

// progress is the elapsed playback position of the session
func (s *Scheduler) progress(now float64) float64 {
	p := now - (s.nextStart - s.scheduled)
	return min(max(0, p), s.scheduled)
}

// Progress returns the current elapsed playback position
func (s *Scheduler) Progress() float64 {
	return s.progress(s.timeline.Now())
}

// BufferedDuration is the queued plus held duration
func (s *Scheduler) BufferedDuration() float64 {
	total := 0.0
	for _, b := range s.queue {
		total += b.Duration()
	}
	if s.held != nil {
		total += s.held.Duration()
	}
	return total
}

// Buffering reports whether scheduling is waiting for data
func (s *Scheduler) Buffering() bool { return s.buffering }

// Finished reports whether the stream has delivered its last chunk
func (s *Scheduler) Finished() bool { return s.finished }

// Drained reports whether nothing is left to schedule
func (s *Scheduler) Drained() bool { return len(s.queue) == 0 && s.held == nil }

// NextStart returns the clock time the next buffer will start at
func (s *Scheduler) NextStart() float64 { return s.nextStart }

// TotalScheduled returns the duration handed to the timeline so far
func (s *Scheduler) TotalScheduled() float64 { return s.scheduled }

// Queued returns the number of buffers waiting to be scheduled
func (s *Scheduler) Queued() int { return len(s.queue) }

// Stats returns scheduler statistics
func (s *Scheduler) Stats() SchedulerStats { return s.stats }
