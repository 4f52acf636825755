// ABOUTME: Tests for loaded playback transport
// ABOUTME: Covers load, pause, seek clamping and the natural end
package studio

import (
	"context"
	"math"
	"testing"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
)

func wavBlob(t *testing.T, seconds float64) []byte {
	t.Helper()
	buf := audio.NewBuffer(1, int(seconds*audio.SampleRate), audio.SampleRate)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = 0.1
	}
	blob, err := encode.NewWAV().Encode(buf)
	if err != nil {
		t.Fatal(err)
	}
	return blob
}

func TestLoadedTransport(t *testing.T) {
	var buffering bool
	obs := ObserverFunc(func(s Snapshot) { buffering = buffering || s.IsBuffering })
	e, g := newTestEngine(t, Options{Observer: obs})

	if err := e.LoadBlob(context.Background(), wavBlob(t, 1)); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	snap := e.Snapshot()
	if snap.Transport != LoadedSeekable || !snap.IsPlaying || snap.Duration != 1 {
		t.Fatalf("unexpected snapshot after load %+v", snap)
	}

	g.Advance(0.5)
	e.Pause()
	snap = e.Snapshot()
	if snap.Transport != LoadedPaused || snap.IsPlaying || snap.Progress != 0.5 {
		t.Fatalf("unexpected snapshot after pause %+v", snap)
	}
	if g.Active() != 0 {
		t.Error("pause must stop the source")
	}

	if err := e.Seek(5); err != nil {
		t.Fatal(err)
	}
	if p := e.Snapshot().Progress; p != 1 {
		t.Errorf("expected seek clamped to 1, got %v", p)
	}
	if err := e.Seek(0.25); err != nil {
		t.Fatal(err)
	}
	if e.Snapshot().Transport != LoadedPaused {
		t.Error("seek while paused must stay paused")
	}

	if err := e.Play(); err != nil {
		t.Fatal(err)
	}
	if snap := e.Snapshot(); snap.Transport != LoadedSeekable || snap.Progress != 0.25 {
		t.Fatalf("expected playback from 0.25, got %+v", snap)
	}

	g.Advance(0.5)
	e.Tick()
	if p := e.Snapshot().Progress; p != 0.75 {
		t.Errorf("expected progress 0.75, got %v", p)
	}

	g.Advance(0.25)
	e.Tick()
	if snap := e.Snapshot(); snap.Transport != Idle || snap.Progress != 0 {
		t.Errorf("expected idle at the natural end, got %+v", snap)
	}
	if buffering {
		t.Error("loaded playback must never report buffering")
	}
}

func TestSeekWhilePlayingRestarts(t *testing.T) {
	e, g := newTestEngine(t, Options{})
	if err := e.LoadBlob(context.Background(), wavBlob(t, 2)); err != nil {
		t.Fatal(err)
	}

	g.Advance(0.5)
	if err := e.Seek(1.5); err != nil {
		t.Fatal(err)
	}
	if snap := e.Snapshot(); snap.Transport != LoadedSeekable || snap.Progress != 1.5 {
		t.Fatalf("unexpected snapshot after seek %+v", snap)
	}
	if g.Active() != 1 {
		t.Errorf("expected exactly one playing source, got %d", g.Active())
	}

	g.Advance(0.25)
	e.Tick()
	if p := e.Snapshot().Progress; p != 1.75 {
		t.Errorf("expected progress 1.75, got %v", p)
	}
}

func TestSeekRequiresLoadedBuffer(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	if err := e.Seek(1); !studioerr.IsInvalidEdit(err) {
		t.Errorf("expected invalid edit, got %v", err)
	}
}

func TestLoadBlobDecodeFailure(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	err := e.LoadBlob(context.Background(), []byte{7})
	if !studioerr.IsDecodeFailure(err) {
		t.Fatalf("expected decode failure, got %v", err)
	}
	if e.Snapshot().Transport != Idle {
		t.Error("expected idle after a failed load")
	}
}

func TestPlayAndPauseInIdleAreNoops(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	if err := e.Play(); err != nil {
		t.Fatal(err)
	}
	e.Pause()
	if e.Snapshot().Transport != Idle {
		t.Error("expected idle")
	}
}

func TestSeekRejectsNonFinitePositions(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	if err := e.LoadBlob(context.Background(), wavBlob(t, 1)); err != nil {
		t.Fatal(err)
	}
	e.Pause()
	before := e.Snapshot()

	for _, pos := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := e.Seek(pos); !studioerr.IsInvalidEdit(err) {
			t.Errorf("seek to %v: expected invalid edit, got %v", pos, err)
		}
	}
	if got := e.Snapshot(); got != before {
		t.Errorf("expected snapshot unchanged, got %+v want %+v", got, before)
	}
}
