// ABOUTME: Wires configuration into an engine and its collaborators
// ABOUTME: Provider, device, library, state bus and telemetry setup and teardown
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-studio/internal/bus"
	"github.com/Resonate-Protocol/resonate-studio/internal/config"
	"github.com/Resonate-Protocol/resonate-studio/internal/discovery"
	"github.com/Resonate-Protocol/resonate-studio/internal/library"
	"github.com/Resonate-Protocol/resonate-studio/internal/logger"
	"github.com/Resonate-Protocol/resonate-studio/internal/player"
	"github.com/Resonate-Protocol/resonate-studio/internal/provider"
	"github.com/Resonate-Protocol/resonate-studio/internal/telemetry"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studio"
)

const (
	embeddedBusPort  = 4222
	discoveryTimeout = 5 * time.Second
)

// appOptions selects which collaborators a command needs
type appOptions struct {
	provider bool
	playback bool
	library  bool

	// observers are added to the engine's fan-out
	observers []studio.Observer

	// saveTo also receives every auto-saved recording
	saveTo string
}

type app struct {
	cfg    *config.Config
	log    *slog.Logger
	engine *studio.Engine
	store  *library.Store
	idle   *idleWatch

	busServer *bus.EmbeddedServer
	busClient *bus.Client
	control   *bus.Controller
	tel       *telemetry.Telemetry
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg, log: logger.WithComponent("cli"), idle: newIdleWatch()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	enc, err := encode.New(cfg.Export.Format, cfg.Export.Bitrate)
	if err != nil {
		return nil, err
	}

	engineOpts := studio.Options{
		Encoder:      enc,
		Logger:       logger.WithComponent("engine"),
		Retry:        provider.Policy{Attempts: cfg.Retry.Attempts, BaseDelay: cfg.Retry.BaseDelay},
		PollInterval: cfg.Playback.PollInterval,
	}
	sched := player.DefaultConfig()
	sched.LookAhead = cfg.Playback.LookAhead
	sched.BufferThreshold = cfg.Playback.BufferThreshold
	engineOpts.Scheduler = sched

	var recs recorders
	if opts.library {
		a.store, err = library.Open(ctx, cfg.Library.Path, logger.WithComponent("library"))
		if err != nil {
			return nil, err
		}
		recs = append(recs, a.store)
	}
	if opts.saveTo != "" {
		recs = append(recs, fileRecorder(opts.saveTo))
	}
	if len(recs) > 0 {
		engineOpts.Recorder = recs
	}

	if cfg.Telemetry.MetricsAddr != "" || cfg.Telemetry.Tracing {
		a.tel, err = telemetry.Setup(ctx, cfg.Telemetry, logOut, logger.WithComponent("telemetry"))
		if err != nil {
			return nil, fmt.Errorf("failed to set up telemetry: %w", err)
		}
		if cfg.Telemetry.MetricsAddr != "" {
			if err := a.tel.Serve(cfg.Telemetry.MetricsAddr); err != nil {
				return nil, err
			}
		}
		engineOpts.Metrics = a.tel.Metrics()
	}

	observers := studio.Observers{a.idle}
	observers = append(observers, opts.observers...)

	if opts.playback {
		dev, err := output.NewDevice(cfg.Playback.Backend)
		if err != nil {
			return nil, err
		}
		engineOpts.Device = dev

		if err := a.connectBus(); err != nil {
			return nil, err
		}
		if a.busClient != nil {
			observers = append(observers, bus.NewPublisher(a.busClient))
		}
	}
	engineOpts.Observer = observers

	if opts.provider {
		engineOpts.Provider, err = newProvider(ctx, cfg.Provider)
		if err != nil {
			return nil, err
		}
	}

	a.engine = studio.New(engineOpts)

	if a.busClient != nil {
		a.control, err = bus.Serve(a.busClient, a.engine)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) connectBus() error {
	url := a.cfg.Bus.URL
	if a.cfg.Bus.Embedded {
		srv, err := bus.StartEmbedded("0.0.0.0", embeddedBusPort, logger.WithComponent("nats"))
		if err != nil {
			return err
		}
		a.busServer = srv
		if url == "" {
			url = srv.ClientURL()
		}
	}
	if url == "" {
		return nil
	}

	client, err := bus.Connect(url, a.cfg.Bus.Subject, logger.WithComponent("bus"))
	if err != nil {
		return err
	}
	a.busClient = client
	return nil
}

// Close releases everything newApp created
func (a *app) Close() {
	if a.control != nil {
		a.control.Close()
	}
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.log.Warn("failed to close engine", "error", err)
		}
	}
	a.busClient.Close()
	a.busServer.Shutdown()
	if a.tel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tel.Shutdown(ctx); err != nil {
			a.log.Warn("telemetry shutdown failed", "error", err)
		}
	}
	if a.store != nil {
		a.store.Close()
	}
}

// newProvider builds the configured TTS provider
func newProvider(ctx context.Context, cfg config.ProviderConfig) (provider.Provider, error) {
	switch cfg.Kind {
	case "tone":
		return provider.NewTone(), nil
	case "gtts":
		return provider.NewGTTS(), nil
	}

	url := cfg.URL
	if url == "" && cfg.Discover {
		m := discovery.NewManager(discovery.Config{})
		defer m.Stop()

		slog.Info("looking for a tts server", "timeout", discoveryTimeout)
		srv, err := m.Lookup(ctx, discoveryTimeout)
		if err != nil {
			return nil, err
		}
		url = srv.URL()
		slog.Info("discovered tts server", "name", srv.Name, "url", url)
	}
	return provider.NewWebSocket(url, cfg.APIKey), nil
}

// recorders saves to each recorder in turn
type recorders []studio.Recorder

func (r recorders) Save(ctx context.Context, rec library.Record) error {
	for _, rr := range r {
		if err := rr.Save(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// fileRecorder writes the recording blob to a path
type fileRecorder string

func (f fileRecorder) Save(ctx context.Context, rec library.Record) error {
	return os.WriteFile(string(f), rec.Blob, 0o644)
}

// idleWatch fires once the engine returns to idle after leaving it
type idleWatch struct {
	active bool
	once   sync.Once
	done   chan struct{}
}

func newIdleWatch() *idleWatch {
	return &idleWatch{done: make(chan struct{})}
}

// Publish is called with the engine lock held, so snapshots arrive in order.
func (w *idleWatch) Publish(s studio.Snapshot) {
	if s.Transport != studio.Idle {
		w.active = true
		return
	}
	if w.active && !s.IsGenerating {
		w.once.Do(func() { close(w.done) })
	}
}

func (w *idleWatch) Done() <-chan struct{} {
	return w.done
}
