// ABOUTME: Tests for the audio graph
// ABOUTME: Verifies clock advance, scheduling, mixing and volume
package output

import (
	"math"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
)

const testRate = 1000

func constBuf(frames int, value float32) *audio.Buffer {
	buf := audio.NewBuffer(1, frames, testRate)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = value
	}
	return buf
}

func TestGraphClockAdvances(t *testing.T) {
	g := NewGraph(testRate, 2)

	if g.Now() != 0 {
		t.Fatalf("expected clock at 0, got %v", g.Now())
	}

	g.Advance(0.25)
	if g.Now() != 0.25 {
		t.Errorf("expected clock at 0.25, got %v", g.Now())
	}

	g.Render(make([]float32, 20))
	if g.Now() != 0.26 {
		t.Errorf("expected clock at 0.26, got %v", g.Now())
	}
}

func TestGraphScheduleAtFutureTime(t *testing.T) {
	g := NewGraph(testRate, 1)
	g.Schedule(constBuf(5, 0.5), 0.003)

	out := make([]float32, 10)
	g.Render(out)

	expected := []float32{0, 0, 0, 0.5, 0.5, 0.5, 0.5, 0.5, 0, 0}
	for i := range expected {
		if out[i] != expected[i] {
			t.Fatalf("frame %d: expected %v, got %v (%v)", i, expected[i], out[i], out)
		}
	}
	if g.Active() != 0 {
		t.Errorf("expected finished source to be pruned, %d active", g.Active())
	}
}

func TestGraphScheduleInPastStartsNow(t *testing.T) {
	g := NewGraph(testRate, 1)
	g.Advance(1)

	g.Schedule(constBuf(2, 0.25), 0.5)
	out := make([]float32, 3)
	g.Render(out)

	if out[0] != 0.25 || out[1] != 0.25 || out[2] != 0 {
		t.Errorf("unexpected output %v", out)
	}
}

func TestGraphMixesAndDuplicatesMono(t *testing.T) {
	g := NewGraph(testRate, 2)
	g.Schedule(constBuf(2, 0.25), 0)
	g.Schedule(constBuf(2, 0.5), 0)

	out := make([]float32, 4)
	g.Render(out)

	for i, s := range out {
		if s != 0.75 {
			t.Fatalf("sample %d: expected 0.75, got %v", i, s)
		}
	}
}

func TestGraphPlayFromOffset(t *testing.T) {
	g := NewGraph(testRate, 1)
	buf := audio.FromInterleaved([]float32{0.1, 0.2, 0.3, 0.4}, 1, testRate)

	g.Play(buf, 0.002)
	out := make([]float32, 3)
	g.Render(out)

	if out[0] != 0.3 || out[1] != 0.4 || out[2] != 0 {
		t.Errorf("unexpected output %v", out)
	}
}

func TestGraphStop(t *testing.T) {
	g := NewGraph(testRate, 1)
	src := g.Schedule(constBuf(100, 0.5), 0)
	g.Schedule(constBuf(100, 0.5), 0.01)

	if g.Active() != 2 {
		t.Fatalf("expected 2 active sources, got %d", g.Active())
	}

	g.Stop(src)
	g.Stop(src)
	if g.Active() != 1 {
		t.Errorf("expected 1 active source, got %d", g.Active())
	}

	g.StopAll()
	if g.Active() != 0 {
		t.Errorf("expected no active sources, got %d", g.Active())
	}

	out := make([]float32, 20)
	g.Render(out)
	for _, s := range out {
		if s != 0 {
			t.Fatal("expected silence after StopAll")
		}
	}
}

func TestGraphVolume(t *testing.T) {
	tests := []struct {
		name     string
		volume   int
		muted    bool
		expected float32
	}{
		{"full", 100, false, 0.5},
		{"half", 50, false, 0.25},
		{"muted", 100, true, 0},
		{"clamped above", 150, false, 0.5},
		{"clamped below", -10, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph(testRate, 1)
			g.SetVolume(tt.volume)
			g.SetMuted(tt.muted)
			g.Schedule(constBuf(1, 0.5), 0)

			out := make([]float32, 1)
			g.Render(out)
			if out[0] != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, out[0])
			}
		})
	}
}

func TestGraphClipsMix(t *testing.T) {
	g := NewGraph(testRate, 1)
	g.Schedule(constBuf(1, 0.8), 0)
	g.Schedule(constBuf(1, 0.8), 0)

	out := make([]float32, 1)
	g.Render(out)
	if out[0] != 1 {
		t.Errorf("expected clipped 1, got %v", out[0])
	}
}

func TestNewDevice(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"oto", false},
		{"speaker", false},
		{"null", false},
		{"alsa", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			dev, err := NewDevice(tt.backend)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil || dev == nil {
				t.Fatalf("expected device, got %v", err)
			}
		})
	}
}

func TestNullDeviceAdvancesClock(t *testing.T) {
	g := NewGraph(testRate, 1)
	dev := NewNull()

	if err := dev.Start(g); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if err := dev.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if g.Now() <= 0 {
		t.Error("expected clock to advance")
	}
	if err := dev.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
}

func sineBuf(frames int, freq, amplitude float64) *audio.Buffer {
	buf := audio.NewBuffer(1, frames, audio.SampleRate)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/audio.SampleRate))
	}
	return buf
}

func TestGraphLevels(t *testing.T) {
	g := NewGraph(audio.SampleRate, 1)
	if lv := g.Levels(); lv.RMS != 0 || lv.Peak != 0 {
		t.Fatalf("expected silence before rendering, got %+v", lv)
	}

	g.Schedule(sineBuf(2*AnalysisSize, 6000, 0.5), 0)
	g.Render(make([]float32, 2*AnalysisSize))

	lv := g.Levels()
	if math.Abs(lv.Peak-0.5) > 0.001 {
		t.Errorf("expected peak 0.5, got %v", lv.Peak)
	}
	if math.Abs(lv.RMS-0.5/math.Sqrt2) > 0.005 {
		t.Errorf("expected rms %v, got %v", 0.5/math.Sqrt2, lv.RMS)
	}

	g.SetVolume(50)
	g.Schedule(sineBuf(2*AnalysisSize, 6000, 0.5), 0)
	g.Render(make([]float32, 2*AnalysisSize))
	if lv := g.Levels(); math.Abs(lv.Peak-0.25) > 0.001 {
		t.Errorf("expected levels measured after volume, got %+v", lv)
	}
}

func TestGraphFrequencyData(t *testing.T) {
	g := NewGraph(audio.SampleRate, 1)

	// bin 65 of the analysis window, the middle of the first of eight bands
	freq := 65 * float64(audio.SampleRate) / AnalysisSize
	g.Schedule(sineBuf(2*AnalysisSize, freq, 0.5), 0)
	g.Render(make([]float32, 2*AnalysisSize))

	bands := g.FrequencyData(8)
	if len(bands) != 8 {
		t.Fatalf("expected 8 bands, got %d", len(bands))
	}
	if bands[0] < 0.45 || bands[0] > 0.55 {
		t.Errorf("expected the tone in band 0 near 0.5, got %v", bands[0])
	}
	for i, v := range bands[1:] {
		if v > 0.05 {
			t.Errorf("expected band %d quiet, got %v", i+1, v)
		}
	}

	g.Render(make([]float32, AnalysisSize))
	for i, v := range g.FrequencyData(8) {
		if v != 0 {
			t.Errorf("expected silence in band %d after the tone ended, got %v", i, v)
		}
	}
}
