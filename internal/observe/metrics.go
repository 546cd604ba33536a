// Package observe provides observability primitives for narralign:
// OpenTelemetry metrics and the Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all narralign metrics.
const meterName = "github.com/MrWong99/narralign"

// Metrics holds all OpenTelemetry metric instruments for the engine.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// AlignDuration tracks end-to-end chapter alignment latency.
	AlignDuration metric.Float64Histogram

	// WindowTokens tracks the book-token size of aligned windows; large
	// values indicate sparse anchoring.
	WindowTokens metric.Int64Histogram

	// AnchorsSelected counts anchors selected per chapter. Use with
	// attribute: attribute.String("chapter", ...)
	AnchorsSelected metric.Int64Counter

	// GreedyFallbacks counts windows that exceeded the DP cell budget and
	// fell back to the greedy scan.
	GreedyFallbacks metric.Int64Counter

	// SentencesFlagged counts sentences classified unreliable.
	SentencesFlagged metric.Int64Counter

	// TimingUnresolved counts sentences the timing reconciler left without a
	// refined span.
	TimingUnresolved metric.Int64Counter

	// ActiveChapters tracks the number of chapter alignments in flight.
	ActiveChapters metric.Int64UpDownCounter
}

// durationBuckets defines histogram bucket boundaries (in seconds) sized for
// per-chapter alignment work.
var durationBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// windowBuckets defines bucket boundaries for window token counts.
var windowBuckets = []float64{
	8, 16, 32, 64, 128, 256, 512, 1024, 4096,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AlignDuration, err = m.Float64Histogram("narralign.chapter.duration",
		metric.WithDescription("End-to-end chapter alignment latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.WindowTokens, err = m.Int64Histogram("narralign.window.tokens",
		metric.WithDescription("Book-token size of aligned windows."),
		metric.WithExplicitBucketBoundaries(windowBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AnchorsSelected, err = m.Int64Counter("narralign.anchors.selected",
		metric.WithDescription("Anchors selected during discovery."),
	); err != nil {
		return nil, err
	}
	if met.GreedyFallbacks, err = m.Int64Counter("narralign.windows.greedy_fallbacks",
		metric.WithDescription("Windows aligned with the greedy scan instead of the DP."),
	); err != nil {
		return nil, err
	}
	if met.SentencesFlagged, err = m.Int64Counter("narralign.sentences.flagged",
		metric.WithDescription("Sentences classified unreliable by the rollup."),
	); err != nil {
		return nil, err
	}
	if met.TimingUnresolved, err = m.Int64Counter("narralign.timing.unresolved",
		metric.WithDescription("Sentences left without a refined time span."),
	); err != nil {
		return nil, err
	}
	if met.ActiveChapters, err = m.Int64UpDownCounter("narralign.chapters.active",
		metric.WithDescription("Chapter alignments currently in flight."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
	defaultMetricsErr  error
)

// DefaultMetrics returns the process-wide [Metrics] instance backed by the
// global OTel meter provider. The instance is created on first use; creation
// errors are returned on every call.
func DefaultMetrics() (*Metrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = NewMetrics(otel.GetMeterProvider())
	})
	return defaultMetrics, defaultMetricsErr
}
