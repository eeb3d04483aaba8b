// Package metrics exposes pipeline counters via Prometheus.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the pipeline's instruments.
type Metrics struct {
	SamplesTotal     prometheus.Counter
	SampleFailures   prometheus.Counter
	BroadcastDropped prometheus.Counter
	Subscribers      prometheus.Gauge
	SampleDuration   prometheus.Histogram
}

// New registers the pipeline instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SamplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motorsync_samples_total",
			Help: "Readings successfully persisted and broadcast.",
		}),
		SampleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motorsync_sample_failures_total",
			Help: "Sample attempts aborted by synthesis or persistence errors.",
		}),
		BroadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motorsync_broadcast_dropped_total",
			Help: "Messages dropped for slow subscribers.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "motorsync_subscribers",
			Help: "Currently connected push-channel subscribers.",
		}),
		SampleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "motorsync_sample_duration_seconds",
			Help:    "End-to-end latency of one sample operation.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
	reg.MustRegister(m.SamplesTotal, m.SampleFailures, m.BroadcastDropped, m.Subscribers, m.SampleDuration)
	return m
}

// ObserveSample records one sample attempt; plugs into the coordinator's
// sample hook.
func (m *Metrics) ObserveSample(err error, elapsedSecs float64) {
	if err != nil {
		m.SampleFailures.Inc()
		return
	}
	m.SamplesTotal.Inc()
	m.SampleDuration.Observe(elapsedSecs)
}
