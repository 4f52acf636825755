// ABOUTME: OpenTelemetry setup for the studio
// ABOUTME: Prometheus-backed pipeline counters and an optional stdout tracer
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"

	"github.com/Resonate-Protocol/resonate-studio/internal/config"
	"github.com/Resonate-Protocol/resonate-studio/internal/version"
)

// Telemetry owns the meter and tracer providers
type Telemetry struct {
	meterProvider *sdkmetric.MeterProvider
	traceShutdown func(context.Context) error
	handler       http.Handler
	metrics       *Metrics
	server        *http.Server
	log           *slog.Logger
}

// Setup builds the providers. Traces go to traceOut when tracing is on.
func Setup(ctx context.Context, cfg config.TelemetryConfig, traceOut io.Writer, log *slog.Logger) (*Telemetry, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("resonate-studio"),
			semconv.ServiceVersion(version.Version),
		),
	)
	if err != nil {
		return nil, err
	}

	t := &Telemetry{
		traceShutdown: func(context.Context) error { return nil },
		log:           log,
	}

	if cfg.Tracing {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(traceOut), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		t.traceShutdown = tp.Shutdown
		log.Info("tracing initialized", slog.String("exporter", "stdout"))
	}

	registry := promclient.NewRegistry()
	promExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		log.Warn("failed to initialize prometheus exporter", slog.String("error", err.Error()))
		t.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	} else {
		t.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(promExporter),
			sdkmetric.WithResource(res),
		)
		t.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}
	otel.SetMeterProvider(t.meterProvider)

	t.metrics, err = newMetrics(t.meterProvider.Meter("github.com/Resonate-Protocol/resonate-studio"))
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Metrics returns the engine metrics sink
func (t *Telemetry) Metrics() *Metrics {
	return t.metrics
}

// Handler serves the Prometheus exposition, nil when the exporter failed
func (t *Telemetry) Handler() http.Handler {
	return t.handler
}

// Serve exposes /metrics on addr in the background
func (t *Telemetry) Serve(addr string) error {
	if t.handler == nil {
		return errors.New("no metrics handler")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", t.handler)
	t.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := t.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			t.log.Warn("metrics server stopped", "error", err)
		}
	}()
	t.log.Info("metrics listening", "addr", ln.Addr().String())
	return nil
}

// Shutdown flushes and stops everything started by Setup and Serve
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.server != nil {
		if err := t.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := t.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := t.traceShutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
