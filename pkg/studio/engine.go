// ABOUTME: Studio engine: streaming generation and session lifecycle
// ABOUTME: Feeds provider chunks through decode and fades into the scheduler
package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joomcode/errorx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Resonate-Protocol/resonate-studio/internal/library"
	"github.com/Resonate-Protocol/resonate-studio/internal/player"
	"github.com/Resonate-Protocol/resonate-studio/internal/provider"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
)

var tracer = otel.Tracer("github.com/Resonate-Protocol/resonate-studio/pkg/studio")

// Options configures an Engine. Zero values get defaults.
type Options struct {
	Provider provider.Provider
	Decoder  *decode.ChunkDecoder
	Encoder  encode.Encoder

	// Graph is the output clock. Created on first use when nil.
	Graph *output.Graph

	// Device renders the graph. When nil the graph must be advanced by the caller.
	Device output.Device

	Recorder Recorder
	Observer Observer
	Metrics  Metrics
	Logger   *slog.Logger

	Scheduler        player.Config
	Retry            provider.Policy
	PollInterval     time.Duration
	ProgressInterval time.Duration
}

// Engine owns one output graph and at most one active session
type Engine struct {
	opts     Options
	log      *slog.Logger
	decoder  *decode.ChunkDecoder
	encoder  encode.Encoder
	observer Observer
	metrics  Metrics

	mu sync.Mutex
	wg sync.WaitGroup

	graph         *output.Graph
	deviceStarted bool
	sched         *player.Scheduler

	state      TransportState
	session    uint64
	cancel     context.CancelFunc
	generating bool

	pollStop     chan struct{}
	progressStop chan struct{}

	// live session accumulation
	rawChunks [][]byte
	history   []*audio.Buffer
	container bool
	decoded   float64

	// loaded playback
	loaded        *audio.Buffer
	source        *output.Source
	playbackStart float64
	pausedAt      float64

	progress float64
}

// New creates an idle engine
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Decoder == nil {
		opts.Decoder = decode.New(audio.SampleRate)
	}
	if opts.Encoder == nil {
		opts.Encoder = encode.NewOggOpus(encode.DefaultBitrate)
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	if opts.Observer == nil {
		opts.Observer = Observers(nil)
	}
	if opts.Scheduler == (player.Config{}) {
		opts.Scheduler = player.DefaultConfig()
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = provider.DefaultPolicy()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 50 * time.Millisecond
	}

	e := &Engine{
		opts:     opts,
		log:      opts.Logger,
		decoder:  opts.Decoder,
		encoder:  opts.Encoder,
		observer: opts.Observer,
		metrics:  opts.Metrics,
		graph:    opts.Graph,
	}
	return e
}

// graphLocked creates the graph and scheduler on first use
func (e *Engine) graphLocked() *output.Graph {
	if e.graph == nil {
		e.graph = output.NewGraph(audio.SampleRate, 2)
	}
	if e.sched == nil {
		e.sched = player.NewScheduler(e.graph, e.opts.Scheduler, e.log.With("component", "scheduler"))
	}
	return e.graph
}

// outputLocked returns the graph and starts the device on first use
func (e *Engine) outputLocked() (*output.Graph, error) {
	e.graphLocked()
	if e.opts.Device != nil && !e.deviceStarted {
		if err := e.opts.Device.Start(e.graph); err != nil {
			return nil, fmt.Errorf("failed to start audio device: %w", err)
		}
		e.deviceStarted = true
	}
	return e.graph, nil
}

// Generate synthesizes req and streams it to the output. It returns once the
// provider stream is exhausted; playback of the tail continues afterwards.
// A Stop or a newer Generate ends the call early with a nil error.
func (e *Engine) Generate(ctx context.Context, req provider.Request) (err error) {
	if e.opts.Provider == nil {
		return studioerr.MissingPrerequisite.New("no tts provider configured")
	}
	if strings.TrimSpace(req.Text) == "" {
		return studioerr.MissingPrerequisite.New("nothing to synthesize")
	}
	if err := provider.CheckReady(e.opts.Provider); err != nil {
		return errorx.Decorate(err, "provider is not ready")
	}

	ctx, span := tracer.Start(ctx, "studio.generate")
	span.SetAttributes(attribute.String("voice", req.Voice), attribute.Bool("clone", req.Cloning()))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	e.mu.Lock()
	e.teardownLocked()
	if _, err := e.outputLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	id := e.session
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.cancel = cancel
	e.generating = true
	e.state = StreamingLive
	e.sched.Begin()
	e.log.Info("generation started", "session", id, "voice", req.Voice)
	e.publishLocked()
	e.mu.Unlock()

	policy := e.opts.Retry
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		e.metrics.ProviderRetry()
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
	}

	stream, err := provider.OpenWithRetry(sctx, e.opts.Provider, req, policy)
	if err != nil {
		return e.endSession(ctx, id, decorate(err, "failed to open provider stream"))
	}
	defer stream.Close()

	e.mu.Lock()
	if e.session != id {
		e.mu.Unlock()
		return nil
	}
	e.startPollLocked(id)
	e.mu.Unlock()

	for {
		chunk, err := stream.Next(sctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return e.endSession(ctx, id, err)
		}
		if !e.acceptChunk(id, chunk) {
			return nil
		}
	}

	duration, ok := e.finishStream(id)
	if !ok {
		return nil
	}

	e.autoSave(ctx, req, duration)
	return nil
}

// acceptChunk decodes one chunk into the session. Returns false when the session is gone.
func (e *Engine) acceptChunk(id uint64, chunk provider.Chunk) bool {
	res := e.decoder.Decode(chunk.Data)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != id {
		return false
	}

	e.rawChunks = append(e.rawChunks, chunk.Data)
	if !res.OK() {
		e.metrics.DecodeFailed()
		e.log.Warn("chunk decode failed, skipping", "bytes", len(chunk.Data), "mime", chunk.MimeType, "error", res.Err)
		return true
	}
	if res.Err != nil {
		e.log.Debug("container decode failed, used raw pcm", "container", res.Container, "error", res.Err)
	}

	e.metrics.ChunkDecoded(res.Kind.String())
	if res.Kind == decode.KindContainer {
		e.container = true
	}
	// the scheduler fades its buffer in place
	e.history = append(e.history, res.Buffer.Clone())
	e.decoded += res.Buffer.Duration()

	if e.sched.Push(res.Buffer) {
		e.publishLocked()
	}
	return true
}

// finishStream marks the stream complete and returns the decoded duration
func (e *Engine) finishStream(id uint64) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != id {
		return 0, false
	}

	e.sched.Finish()
	e.generating = false
	e.log.Info("generation complete", "session", id, "chunks", len(e.rawChunks), "duration", e.decoded)
	e.publishLocked()
	return e.decoded, true
}

// endSession handles a stream that failed or was cancelled
func (e *Engine) endSession(ctx context.Context, id uint64, err error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != id {
		// superseded by Stop or a newer generation
		return nil
	}
	e.stopLocked()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	e.log.Error("generation failed", "session", id, "error", err)
	return err
}

// decorate adds context to err without hiding its errorx type
func decorate(err error, message string) error {
	if errorx.Cast(err) == nil {
		return fmt.Errorf("%s: %w", message, err)
	}
	return errorx.Decorate(err, "%s", message)
}

func (e *Engine) autoSave(ctx context.Context, req provider.Request, duration float64) {
	if e.opts.Recorder == nil {
		return
	}
	blob, err := e.Export(ctx)
	if err != nil {
		e.log.Warn("auto-save export failed", "error", err)
		return
	}
	if blob == nil {
		return
	}

	style := req.Style
	if style == "" {
		style = "Custom"
	}
	now := time.Now()
	rec := library.Record{
		ID:        uuid.NewString(),
		Title:     "Recording " + now.Format("15:04:05"),
		Voice:     req.Voice,
		Style:     style,
		Duration:  duration,
		Timestamp: now,
		Blob:      blob,
	}
	if err := e.opts.Recorder.Save(ctx, rec); err != nil {
		e.log.Warn("auto-save failed", "error", err)
	}
}

func (e *Engine) startPollLocked(id uint64) {
	if e.pollStop != nil {
		return
	}
	stop := make(chan struct{})
	e.pollStop = stop

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.opts.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.mu.Lock()
				alive := e.session == id && e.state == StreamingLive && e.tickLiveLocked()
				e.mu.Unlock()
				if !alive {
					return
				}
			}
		}
	}()
}

func (e *Engine) stopPollLocked() {
	if e.pollStop != nil {
		close(e.pollStop)
		e.pollStop = nil
	}
}

// tickLiveLocked runs one scheduler poll. Returns false once the session ended.
func (e *Engine) tickLiveLocked() bool {
	res := e.sched.Tick()
	if res.Underruns > 0 {
		e.metrics.Underruns(res.Underruns)
	}
	if res.BufferingStarted {
		e.metrics.BufferingStarted()
	}
	e.progress = res.Progress

	if res.Ended {
		e.log.Info("playback complete", "session", e.session, "duration", e.sched.TotalScheduled())
		e.stopLocked()
		return false
	}
	e.publishLocked()
	return true
}

// Tick runs one scheduler or progress poll immediately
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StreamingLive:
		e.tickLiveLocked()
	case LoadedSeekable:
		e.tickLoadedLocked()
	}
}

// teardownLocked cancels the session and drops all playback state
func (e *Engine) teardownLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.session++
	e.stopPollLocked()
	e.stopProgressLocked()

	if e.graph != nil {
		e.graph.StopAll()
	}
	if e.sched != nil {
		e.sched.Reset()
	}
	e.source = nil
	e.generating = false

	e.rawChunks = nil
	e.history = nil
	e.container = false
	e.decoded = 0

	e.loaded = nil
	e.playbackStart = 0
	e.pausedAt = 0
	e.progress = 0
	e.state = Idle
}

func (e *Engine) stopLocked() {
	e.teardownLocked()
	e.publishLocked()
}

// Snapshot returns the current engine state
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		IsPlaying:    e.state.Playing(),
		IsBuffering:  e.state.Streaming() && e.sched != nil && e.sched.Buffering(),
		IsGenerating: e.generating,
		Progress:     e.progress,
		Transport:    e.state,
		State:        e.state.String(),
	}
	if e.loaded != nil {
		s.Duration = e.loaded.Duration()
	} else {
		s.Duration = e.decoded
	}
	return s
}

func (e *Engine) publishLocked() {
	e.observer.Publish(e.snapshotLocked())
}

// SetVolume sets the output volume (0-100)
func (e *Engine) SetVolume(volume int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graphLocked().SetVolume(volume)
}

// SetMuted mutes or unmutes the output
func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graphLocked().SetMuted(muted)
}

// Levels reports the loudness of what the output is playing
func (e *Engine) Levels() output.Levels {
	e.mu.Lock()
	g := e.graphLocked()
	e.mu.Unlock()
	return g.Levels()
}

// FrequencyData returns the output spectrum in bands of equal width
func (e *Engine) FrequencyData(bands int) []float64 {
	e.mu.Lock()
	g := e.graphLocked()
	e.mu.Unlock()
	return g.FrequencyData(bands)
}

// Close stops playback, waits for background loops and releases the device
func (e *Engine) Close() error {
	e.Stop()
	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.opts.Device != nil && e.deviceStarted {
		e.deviceStarted = false
		return e.opts.Device.Close()
	}
	return nil
}
