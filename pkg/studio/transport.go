// ABOUTME: Transport commands for live and loaded playback
// ABOUTME: Play, pause, stop, seek and whole-blob loading
package studio

import (
	"context"
	"math"
	"time"

	"github.com/joomcode/errorx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
)

// Play resumes a paused live session or restarts a loaded buffer from the pause position
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, changed := e.state.OnPlay()
	if !changed {
		return nil
	}

	switch next {
	case StreamingLive:
		e.state = StreamingLive
		e.startPollLocked(e.session)
		e.log.Info("live playback resumed", "session", e.session)
	case LoadedSeekable:
		if _, err := e.outputLocked(); err != nil {
			return err
		}
		e.playLoadedLocked(e.pausedAt)
	}
	e.publishLocked()
	return nil
}

// Pause halts scheduling of a live session or captures the position of a loaded buffer.
// Live audio that is already scheduled drains out.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, changed := e.state.OnPause()
	if !changed {
		return
	}

	switch next {
	case StreamingPaused:
		e.stopPollLocked()
		e.progress = e.sched.Progress()
	case LoadedPaused:
		e.pausedAt = e.loadedElapsedLocked()
		e.progress = e.pausedAt
		e.graph.Stop(e.source)
		e.source = nil
		e.stopProgressLocked()
	}
	e.state = next
	e.publishLocked()
}

// Stop tears everything down and returns to Idle. Safe from any state.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// Seek moves a loaded buffer to position t, clamped to its duration
func (e *Engine) Seek(t float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Loaded() || e.loaded == nil {
		return studioerr.InvalidEdit.New("seek needs a loaded recording, transport is %s", e.state)
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return studioerr.InvalidEdit.New("seek position %v is not a finite time", t)
	}

	t = min(max(0, t), e.loaded.Duration())
	e.pausedAt = t
	e.progress = t
	if e.state == LoadedSeekable {
		e.playLoadedLocked(t)
	}
	e.publishLocked()
	return nil
}

// LoadBlob decodes a complete recording and plays it from the start
func (e *Engine) LoadBlob(ctx context.Context, data []byte) (err error) {
	_, span := tracer.Start(ctx, "studio.load")
	span.SetAttributes(attribute.Int("bytes", len(data)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	e.mu.Lock()
	e.stopLocked()
	id := e.session
	e.mu.Unlock()

	res := e.decoder.Decode(data)
	if !res.OK() {
		e.metrics.DecodeFailed()
		return errorx.Decorate(res.Err, "failed to load recording")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != id {
		return nil
	}
	if _, err := e.outputLocked(); err != nil {
		return err
	}

	e.loaded = res.Buffer
	e.playLoadedLocked(0)
	e.log.Info("recording loaded", "duration", res.Buffer.Duration(), "decoded_as", res.Kind)
	e.publishLocked()
	return nil
}

// playLoadedLocked starts the loaded buffer at offset seconds
func (e *Engine) playLoadedLocked(offset float64) {
	if e.source != nil {
		e.graph.Stop(e.source)
	}

	offset = min(max(0, offset), e.loaded.Duration())
	e.playbackStart = e.graph.Now() - offset
	e.source = e.graph.Play(e.loaded, offset)
	e.progress = offset
	e.state = LoadedSeekable
	e.startProgressLocked(e.session)
}

func (e *Engine) loadedElapsedLocked() float64 {
	elapsed := e.graph.Now() - e.playbackStart
	return min(max(0, elapsed), e.loaded.Duration())
}

// tickLoadedLocked updates progress and stops at the end. Returns false once playback ended.
func (e *Engine) tickLoadedLocked() bool {
	duration := e.loaded.Duration()
	elapsed := e.graph.Now() - e.playbackStart

	if elapsed >= duration {
		e.progress = duration
		e.publishLocked()
		e.log.Info("loaded playback complete", "duration", duration)
		e.stopLocked()
		return false
	}

	e.progress = max(0, elapsed)
	e.publishLocked()
	return true
}

func (e *Engine) startProgressLocked(id uint64) {
	if e.progressStop != nil {
		return
	}
	stop := make(chan struct{})
	e.progressStop = stop

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.opts.ProgressInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.mu.Lock()
				alive := e.session == id && e.state == LoadedSeekable && e.tickLoadedLocked()
				e.mu.Unlock()
				if !alive {
					return
				}
			}
		}
	}()
}

func (e *Engine) stopProgressLocked() {
	if e.progressStop != nil {
		close(e.progressStop)
		e.progressStop = nil
	}
}
