// ABOUTME: Engine pipeline counters backed by OpenTelemetry instruments
// ABOUTME: Satisfies the studio Metrics hook
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts decoder, scheduler, provider and export events
type Metrics struct {
	chunks    metric.Int64Counter
	failures  metric.Int64Counter
	underruns metric.Int64Counter
	retries   metric.Int64Counter
	buffering metric.Int64Counter
	exports   metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.chunks, "studio.chunks.decoded", "Audio chunks decoded"},
		{&m.failures, "studio.chunks.failed", "Audio chunks that could not be decoded"},
		{&m.underruns, "studio.scheduler.underruns", "Times playback caught up with the stream"},
		{&m.retries, "studio.provider.retries", "Provider stream acquisition retries"},
		{&m.buffering, "studio.scheduler.buffering", "Times the scheduler entered buffering"},
		{&m.exports, "studio.exports", "Recordings exported"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (m *Metrics) ChunkDecoded(kind string) {
	m.chunks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) DecodeFailed() {
	m.failures.Add(context.Background(), 1)
}

func (m *Metrics) Underruns(n int) {
	m.underruns.Add(context.Background(), int64(n))
}

func (m *Metrics) ProviderRetry() {
	m.retries.Add(context.Background(), 1)
}

func (m *Metrics) BufferingStarted() {
	m.buffering.Add(context.Background(), 1)
}

func (m *Metrics) Exported(format string) {
	m.exports.Add(context.Background(), 1, metric.WithAttributes(attribute.String("format", format)))
}
