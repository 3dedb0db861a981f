// Package metrics instruments graph builds, lint runs, dynamic transforms
// and block execution with Prometheus collectors.
//
// A nil *Recorder is valid and records nothing, so library components can
// hold one unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwbudde/algo-opgraph/engine/graph"
)

const namespace = "opgraph"

// Recorder holds the engine's collectors.
type Recorder struct {
	buildDuration *prometheus.HistogramVec
	buildErrors   *prometheus.CounterVec
	lintErrors    *prometheus.CounterVec
	transforms    *prometheus.CounterVec
	blockDuration prometheus.Histogram
	instances     prometheus.Gauge
}

// New creates a Recorder. Collectors are not registered until
// MustRegister is called.
func New() *Recorder {
	return &Recorder{
		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "builder",
				Name:      "build_duration_seconds",
				Help:      "Graph operator build time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 14), // 10µs to ~80ms
			},
			[]string{"result"}, // "success" or "error"
		),
		buildErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "builder",
				Name:      "build_errors_total",
				Help:      "Build errors by kind.",
			},
			[]string{"kind"},
		),
		lintErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lint",
				Name:      "errors_total",
				Help:      "Lint findings by kind.",
			},
			[]string{"kind"},
		),
		transforms: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dynamic",
				Name:      "transforms_total",
				Help:      "Dynamic transforms applied by kind and result.",
			},
			[]string{"kind", "result"}, // result: "applied" or "stale"
		),
		blockDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dynamic",
				Name:      "block_duration_seconds",
				Help:      "Time spent executing one block, transform draining included.",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 16), // 1µs to ~65ms
			},
		),
		instances: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "dynamic",
				Name:      "instances",
				Help:      "Live dynamic operator instances.",
			},
		),
	}
}

// MustRegister registers every collector with registry.
func (m *Recorder) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(
		m.buildDuration,
		m.buildErrors,
		m.lintErrors,
		m.transforms,
		m.blockDuration,
		m.instances,
	)
}

// ObserveBuild records one build attempt and its errors.
func (m *Recorder) ObserveBuild(d time.Duration, errs *graph.BuildErrors) {
	if m == nil {
		return
	}

	result := "success"

	if errs.Len() > 0 {
		result = "error"
	}

	m.buildDuration.WithLabelValues(result).Observe(d.Seconds())

	for _, e := range errs.All() {
		m.buildErrors.WithLabelValues(e.Kind.String()).Inc()
	}
}

// ObserveLint records the findings of one lint run.
func (m *Recorder) ObserveLint(errs *graph.BuildErrors) {
	if m == nil {
		return
	}

	for _, e := range errs.All() {
		m.lintErrors.WithLabelValues(e.Kind.String()).Inc()
	}
}

// ObserveTransform records one applied transform. stale marks transforms
// that referenced operators no longer present.
func (m *Recorder) ObserveTransform(kind string, stale bool) {
	if m == nil {
		return
	}

	result := "applied"

	if stale {
		result = "stale"
	}

	m.transforms.WithLabelValues(kind, result).Inc()
}

// ObserveBlock records the duration of one block.
func (m *Recorder) ObserveBlock(d time.Duration) {
	if m == nil {
		return
	}

	m.blockDuration.Observe(d.Seconds())
}

// InstanceStarted increments the live instance gauge.
func (m *Recorder) InstanceStarted() {
	if m == nil {
		return
	}

	m.instances.Inc()
}

// InstanceReleased decrements the live instance gauge.
func (m *Recorder) InstanceReleased() {
	if m == nil {
		return
	}

	m.instances.Dec()
}
