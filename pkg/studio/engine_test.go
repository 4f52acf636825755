// ABOUTME: Tests for streaming generation
// ABOUTME: Drives the engine with scripted providers and a manual clock
package studio

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joomcode/errorx"

	"github.com/Resonate-Protocol/resonate-studio/internal/library"
	"github.com/Resonate-Protocol/resonate-studio/internal/provider"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
)

func newTestEngine(t *testing.T, opts Options) (*Engine, *output.Graph) {
	t.Helper()
	g := output.NewGraph(audio.SampleRate, 1)
	opts.Graph = g
	opts.PollInterval = time.Hour
	opts.ProgressInterval = time.Hour
	if opts.Encoder == nil {
		opts.Encoder = encode.NewWAV()
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = provider.Policy{Attempts: 3, BaseDelay: time.Millisecond}
	}
	e := New(opts)
	t.Cleanup(func() { e.Close() })
	return e, g
}

// pcm returns seconds of raw mono PCM16 at 48kHz
func pcm(seconds float64) []byte {
	samples := make([]float32, int(seconds*audio.SampleRate))
	for i := range samples {
		samples[i] = 0.25
	}
	return audio.FloatToPCM16(samples)
}

type gatedStream struct {
	chunks chan []byte
	asked  chan struct{}
}

func newGatedStream() *gatedStream {
	return &gatedStream{chunks: make(chan []byte), asked: make(chan struct{})}
}

func (s *gatedStream) Next(ctx context.Context) (provider.Chunk, error) {
	select {
	case s.asked <- struct{}{}:
	case <-ctx.Done():
		return provider.Chunk{}, ctx.Err()
	}
	select {
	case data, ok := <-s.chunks:
		if !ok {
			return provider.Chunk{}, io.EOF
		}
		return provider.Chunk{Data: data}, nil
	case <-ctx.Done():
		return provider.Chunk{}, ctx.Err()
	}
}

func (s *gatedStream) Close() error { return nil }

type streamProvider struct {
	stream provider.Stream
	fails  []error
	calls  int
}

func (p *streamProvider) Open(ctx context.Context, req provider.Request) (provider.Stream, error) {
	p.calls++
	if p.calls <= len(p.fails) {
		return nil, p.fails[p.calls-1]
	}
	return p.stream, nil
}

type memRecorder struct {
	mu      sync.Mutex
	records []library.Record
}

func (r *memRecorder) Save(ctx context.Context, rec library.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

type countingMetrics struct {
	noopMetrics
	mu        sync.Mutex
	retries   int
	decoded   int
	failures  int
	exports   int
	buffering int
}

func (m *countingMetrics) ProviderRetry() { m.mu.Lock(); m.retries++; m.mu.Unlock() }
func (m *countingMetrics) ChunkDecoded(string) {
	m.mu.Lock()
	m.decoded++
	m.mu.Unlock()
}
func (m *countingMetrics) DecodeFailed()     { m.mu.Lock(); m.failures++; m.mu.Unlock() }
func (m *countingMetrics) Exported(string)   { m.mu.Lock(); m.exports++; m.mu.Unlock() }
func (m *countingMetrics) BufferingStarted() { m.mu.Lock(); m.buffering++; m.mu.Unlock() }

// runUntilIdle ticks the engine in 100ms steps of clock time
func runUntilIdle(t *testing.T, e *Engine, g *output.Graph, limit int) {
	t.Helper()
	for i := 0; i < limit; i++ {
		if e.Snapshot().Transport == Idle {
			return
		}
		e.Tick()
		g.Advance(0.1)
	}
	t.Fatalf("engine still %s after %d ticks", e.Snapshot().Transport, limit)
}

func TestGenerateBufferingCrossesAtThreshold(t *testing.T) {
	stream := newGatedStream()
	rec := &memRecorder{}
	e, g := newTestEngine(t, Options{
		Provider: &streamProvider{stream: stream},
		Recorder: rec,
	})

	done := make(chan error, 1)
	go func() {
		done <- e.Generate(context.Background(), provider.Request{Text: "hello", Voice: "en-US"})
	}()

	<-stream.asked
	snap := e.Snapshot()
	if !snap.IsBuffering || !snap.IsGenerating || snap.Transport != StreamingLive {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}

	steps := []struct {
		seconds   float64
		buffering bool
	}{
		{2, true},
		{2, true},
		{1.5, false},
	}
	for i, step := range steps {
		stream.chunks <- pcm(step.seconds)
		<-stream.asked
		if got := e.Snapshot().IsBuffering; got != step.buffering {
			t.Fatalf("after chunk %d: expected buffering %v, got %v", i+1, step.buffering, got)
		}
	}

	close(stream.chunks)
	if err := <-done; err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	snap = e.Snapshot()
	if snap.IsGenerating {
		t.Error("expected generating to be false after the stream ended")
	}
	if snap.Duration != 5.5 {
		t.Errorf("expected 5.5s decoded, got %v", snap.Duration)
	}

	if len(rec.records) != 1 {
		t.Fatalf("expected one auto-saved record, got %d", len(rec.records))
	}
	saved := rec.records[0]
	if saved.Style != "Custom" || saved.Voice != "en-US" || saved.Duration != 5.5 {
		t.Errorf("unexpected record %+v", saved)
	}
	if !bytes.HasPrefix(saved.Blob, []byte("RIFF")) {
		t.Error("expected a wav blob")
	}

	runUntilIdle(t, e, g, 100)
	if g.Active() != 0 {
		t.Errorf("expected no active sources, got %d", g.Active())
	}
}

func TestGenerateRequiresProvider(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	err := e.Generate(context.Background(), provider.Request{Text: "hi"})
	if !studioerr.IsMissingPrerequisite(err) {
		t.Errorf("expected missing prerequisite, got %v", err)
	}

	e, _ = newTestEngine(t, Options{Provider: provider.NewTone()})
	err = e.Generate(context.Background(), provider.Request{Text: "   "})
	if !studioerr.IsMissingPrerequisite(err) {
		t.Errorf("expected missing prerequisite for empty text, got %v", err)
	}
}

func TestGenerateRetriesStreamOpen(t *testing.T) {
	chunks := []provider.Chunk{{Data: pcm(1)}}
	metrics := &countingMetrics{}
	p := &streamProvider{
		stream: provider.NewSliceStream(chunks, 0),
		fails: []error{
			studioerr.ProviderFailure.New("quota"),
			studioerr.ProviderFailure.New("quota"),
		},
	}
	e, _ := newTestEngine(t, Options{Provider: p, Metrics: metrics})

	if err := e.Generate(context.Background(), provider.Request{Text: "hi"}); err != nil {
		t.Fatalf("expected generation to succeed after retries, got %v", err)
	}
	if p.calls != 3 {
		t.Errorf("expected 3 open attempts, got %d", p.calls)
	}
	if metrics.retries != 2 {
		t.Errorf("expected 2 retries counted, got %d", metrics.retries)
	}
}

func TestGenerateOpenFailureTearsDown(t *testing.T) {
	p := &streamProvider{fails: []error{
		studioerr.ProviderRejected.New("bad voice"),
	}}
	e, _ := newTestEngine(t, Options{Provider: p})

	err := e.Generate(context.Background(), provider.Request{Text: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if snap := e.Snapshot(); snap.Transport != Idle || snap.IsBuffering || snap.IsGenerating {
		t.Errorf("expected idle after failure, got %+v", snap)
	}
}

type failingStream struct {
	sent bool
}

func (s *failingStream) Next(ctx context.Context) (provider.Chunk, error) {
	if !s.sent {
		s.sent = true
		return provider.Chunk{Data: pcm(0.5)}, nil
	}
	return provider.Chunk{}, studioerr.ProviderFailure.New("connection reset")
}

func (s *failingStream) Close() error { return nil }

func TestGenerateStreamErrorIsFatal(t *testing.T) {
	e, _ := newTestEngine(t, Options{Provider: &streamProvider{stream: &failingStream{}}})

	err := e.Generate(context.Background(), provider.Request{Text: "hi"})
	if !studioerr.IsRetryable(err) {
		t.Fatalf("expected the provider failure, got %v", err)
	}
	if snap := e.Snapshot(); snap.Transport != Idle || snap.Progress != 0 {
		t.Errorf("expected idle after stream error, got %+v", snap)
	}
	if blob, _ := e.Export(context.Background()); blob != nil {
		t.Error("expected accumulated audio to be cleared")
	}
}

func TestGenerateSkipsUndecodableChunks(t *testing.T) {
	chunks := []provider.Chunk{{Data: []byte{1}}, {Data: pcm(0.5)}}
	metrics := &countingMetrics{}
	e, _ := newTestEngine(t, Options{
		Provider: &streamProvider{stream: provider.NewSliceStream(chunks, 0)},
		Metrics:  metrics,
	})

	if err := e.Generate(context.Background(), provider.Request{Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	if metrics.failures != 1 || metrics.decoded != 1 {
		t.Errorf("expected 1 failure and 1 decoded chunk, got %d and %d", metrics.failures, metrics.decoded)
	}
	if snap := e.Snapshot(); snap.Duration != 0.5 {
		t.Errorf("expected 0.5s decoded, got %v", snap.Duration)
	}
}

func TestStopDuringGeneration(t *testing.T) {
	stream := newGatedStream()
	e, g := newTestEngine(t, Options{Provider: &streamProvider{stream: stream}})

	done := make(chan error, 1)
	go func() {
		done <- e.Generate(context.Background(), provider.Request{Text: "hi"})
	}()

	<-stream.asked
	stream.chunks <- pcm(1)
	<-stream.asked

	e.Stop()
	if err := <-done; err != nil {
		t.Errorf("stop should end generation quietly, got %v", err)
	}

	snap := e.Snapshot()
	if snap.Transport != Idle || snap.IsBuffering || snap.IsGenerating || snap.IsPlaying || snap.Progress != 0 {
		t.Errorf("unexpected snapshot after stop %+v", snap)
	}
	if g.Active() != 0 {
		t.Errorf("expected no active sources, got %d", g.Active())
	}
}

func TestGenerateCallerCancel(t *testing.T) {
	stream := newGatedStream()
	e, _ := newTestEngine(t, Options{Provider: &streamProvider{stream: stream}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Generate(ctx, provider.Request{Text: "hi"})
	}()

	<-stream.asked
	cancel()

	if err := <-done; err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if e.Snapshot().Transport != Idle {
		t.Error("expected idle after cancellation")
	}
}

func TestLivePauseAndResume(t *testing.T) {
	tone := provider.NewTone()
	e, g := newTestEngine(t, Options{Provider: tone})

	if err := e.Generate(context.Background(), provider.Request{Text: "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen"}); err != nil {
		t.Fatal(err)
	}

	e.Tick()
	g.Advance(0.5)
	e.Tick()

	e.Pause()
	snap := e.Snapshot()
	if snap.Transport != StreamingPaused || snap.IsPlaying {
		t.Fatalf("expected streaming paused, got %+v", snap)
	}

	if err := e.Play(); err != nil {
		t.Fatal(err)
	}
	if e.Snapshot().Transport != StreamingLive {
		t.Fatalf("expected live after play, got %s", e.Snapshot().Transport)
	}

	runUntilIdle(t, e, g, 200)
}

func TestStopIsIdempotent(t *testing.T) {
	var snaps []Snapshot
	obs := ObserverFunc(func(s Snapshot) { snaps = append(snaps, s) })
	e, _ := newTestEngine(t, Options{Observer: obs})

	e.Stop()
	e.Stop()

	blob, err := encode.NewWAV().Encode(audio.NewBuffer(1, audio.SampleRate, audio.SampleRate))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.LoadBlob(context.Background(), blob); err != nil {
		t.Fatal(err)
	}
	e.Stop()
	e.Stop()

	want := Snapshot{Transport: Idle, State: "idle"}
	if got := e.Snapshot(); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if last := snaps[len(snaps)-1]; last != want {
		t.Errorf("expected last published snapshot %+v, got %+v", want, last)
	}
}

func TestGenerateMissingKeyKeepsLoadedPlayback(t *testing.T) {
	e, g := newTestEngine(t, Options{Provider: provider.NewWebSocket("ws://127.0.0.1:1/tts", "")})
	if err := e.LoadBlob(context.Background(), wavBlob(t, 2)); err != nil {
		t.Fatal(err)
	}
	g.Advance(0.5)

	err := e.Generate(context.Background(), provider.Request{Text: "hi"})
	if !studioerr.IsMissingPrerequisite(err) {
		t.Fatalf("expected missing prerequisite, got %v", err)
	}

	snap := e.Snapshot()
	if snap.Transport != LoadedSeekable || !snap.IsPlaying || snap.IsGenerating {
		t.Errorf("expected loaded playback to continue, got %+v", snap)
	}
	if g.Active() != 1 {
		t.Errorf("expected the loaded source to keep playing, got %d sources", g.Active())
	}
}

func TestGenerateOpenFailureKeepsErrorType(t *testing.T) {
	tests := []struct {
		name      string
		fails     []error
		errType   *errorx.Type
		retryable bool
	}{
		{
			name:    "rejected",
			fails:   []error{studioerr.ProviderRejected.New("bad voice")},
			errType: studioerr.ProviderRejected,
		},
		{
			name: "retries exhausted",
			fails: []error{
				studioerr.ProviderFailure.New("quota"),
				studioerr.ProviderFailure.New("quota"),
				studioerr.ProviderFailure.New("quota"),
			},
			errType:   studioerr.ProviderFailure,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, Options{Provider: &streamProvider{fails: tt.fails}})

			err := e.Generate(context.Background(), provider.Request{Text: "hi"})
			if !errorx.IsOfType(err, tt.errType) {
				t.Errorf("expected %s, got %v", tt.errType, err)
			}
			if studioerr.IsRetryable(err) != tt.retryable {
				t.Errorf("expected retryable %v, got %v", tt.retryable, err)
			}
			if !strings.Contains(err.Error(), "failed to open provider stream") {
				t.Errorf("expected context in the message, got %v", err)
			}
		})
	}
}

func TestStopIsIdempotentFromEveryState(t *testing.T) {
	live := func(t *testing.T, e *Engine, stream *gatedStream) <-chan error {
		done := make(chan error, 1)
		go func() {
			done <- e.Generate(context.Background(), provider.Request{Text: "hi"})
		}()
		<-stream.asked
		stream.chunks <- pcm(1)
		<-stream.asked
		return done
	}
	loaded := func(t *testing.T, e *Engine) {
		if err := e.LoadBlob(context.Background(), wavBlob(t, 1)); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		setup func(t *testing.T, e *Engine, stream *gatedStream) <-chan error
		state TransportState
	}{
		{"idle", func(t *testing.T, e *Engine, s *gatedStream) <-chan error { return nil }, Idle},
		{"streaming live", live, StreamingLive},
		{"streaming paused", func(t *testing.T, e *Engine, s *gatedStream) <-chan error {
			done := live(t, e, s)
			e.Pause()
			return done
		}, StreamingPaused},
		{"loaded playing", func(t *testing.T, e *Engine, s *gatedStream) <-chan error {
			loaded(t, e)
			return nil
		}, LoadedSeekable},
		{"loaded paused", func(t *testing.T, e *Engine, s *gatedStream) <-chan error {
			loaded(t, e)
			e.Pause()
			return nil
		}, LoadedPaused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := newGatedStream()
			e, g := newTestEngine(t, Options{Provider: &streamProvider{stream: stream}})

			done := tt.setup(t, e, stream)
			if got := e.Snapshot().Transport; got != tt.state {
				t.Fatalf("expected %s before stop, got %s", tt.state, got)
			}

			e.Stop()
			e.Stop()

			if done != nil {
				if err := <-done; err != nil {
					t.Errorf("stop should end generation quietly, got %v", err)
				}
			}

			want := Snapshot{Transport: Idle, State: "idle"}
			if got := e.Snapshot(); got != want {
				t.Errorf("expected %+v, got %+v", want, got)
			}
			if g.Active() != 0 {
				t.Errorf("expected no active sources, got %d", g.Active())
			}

			e.mu.Lock()
			defer e.mu.Unlock()
			if e.pollStop != nil || e.progressStop != nil {
				t.Error("expected background loops to be released")
			}
		})
	}
}
