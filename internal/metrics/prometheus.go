package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/longpoll/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	sessionsCreated prometheus.Counter
	sessionsExpired prometheus.Counter
	sessionsActive  prometheus.Gauge

	pollResults *prometheus.CounterVec
	batchSize   prometheus.Histogram
	pollLatency prometheus.Histogram

	notifyRaw     prometheus.Counter
	notifyVisible prometheus.Counter
	filterLatency prometheus.Histogram
	filterErrors  prometheus.Counter
	decodeDropped prometheus.Counter
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "longpoll" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "longpoll"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.sessionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "session",
			Name:      "created_total",
			Help:      "Total sessions spawned by CreateStream.",
		})
		p.sessionsExpired = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "session",
			Name:      "expired_total",
			Help:      "Total sessions terminated by keep-alive expiry.",
		})
		p.sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Current number of live sessions on this node.",
		})

		p.pollResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "poll",
			Name:      "results_total",
			Help:      "Total poll outcomes (delivered, not_found, invalid_id).",
		}, []string{"outcome"})
		p.batchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "poll",
			Name:      "batch_size",
			Help:      "Number of event IDs per delivered batch.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		})
		p.pollLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "poll",
			Name:      "latency_seconds",
			Help:      "End-to-end poll latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~20s
		})

		p.notifyRaw = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "notify",
			Name:      "raw_ids_total",
			Help:      "Total raw event IDs received via broadcast.",
		})
		p.notifyVisible = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "notify",
			Name:      "visible_ids_total",
			Help:      "Total event IDs kept after visibility filtering.",
		})
		p.filterLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "notify",
			Name:      "filter_latency_seconds",
			Help:      "Visibility filter call latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~4s
		})
		p.filterErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "notify",
			Name:      "filter_errors_total",
			Help:      "Total visibility filter failures.",
		})
		p.decodeDropped = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "wire",
			Name:      "decode_dropped_total",
			Help:      "Total inbound messages dropped because decoding failed.",
		})

		p.reg.MustRegister(p.sessionsCreated)
		p.reg.MustRegister(p.sessionsExpired)
		p.reg.MustRegister(p.sessionsActive)
		p.reg.MustRegister(p.pollResults)
		p.reg.MustRegister(p.batchSize)
		p.reg.MustRegister(p.pollLatency)
		p.reg.MustRegister(p.notifyRaw)
		p.reg.MustRegister(p.notifyVisible)
		p.reg.MustRegister(p.filterLatency)
		p.reg.MustRegister(p.filterErrors)
		p.reg.MustRegister(p.decodeDropped)
	})
}

// RecordSessionCreated increments the created-sessions counter.
func (p *PrometheusCollector) RecordSessionCreated() {
	p.ensureRegistered()
	p.sessionsCreated.Inc()
}

// RecordSessionExpired increments the expired-sessions counter.
func (p *PrometheusCollector) RecordSessionExpired() {
	p.ensureRegistered()
	p.sessionsExpired.Inc()
}

// SetActiveSessions sets the live-session gauge.
func (p *PrometheusCollector) SetActiveSessions(count int) {
	p.ensureRegistered()
	p.sessionsActive.Set(float64(count))
}

// RecordPoll increments the poll outcome counter.
func (p *PrometheusCollector) RecordPoll(outcome string) {
	p.ensureRegistered()
	p.pollResults.WithLabelValues(outcome).Inc()
}

// ObserveBatchSize observes a delivered batch size.
func (p *PrometheusCollector) ObserveBatchSize(size int) {
	p.ensureRegistered()
	p.batchSize.Observe(float64(size))
}

// ObservePollLatency observes end-to-end poll latency.
func (p *PrometheusCollector) ObservePollLatency(seconds float64) {
	p.ensureRegistered()
	p.pollLatency.Observe(seconds)
}

// RecordNotify adds raw and visible ID counts for one notification.
func (p *PrometheusCollector) RecordNotify(raw, visible int) {
	p.ensureRegistered()
	p.notifyRaw.Add(float64(raw))
	p.notifyVisible.Add(float64(visible))
}

// ObserveFilterLatency observes visibility filter latency.
func (p *PrometheusCollector) ObserveFilterLatency(seconds float64) {
	p.ensureRegistered()
	p.filterLatency.Observe(seconds)
}

// RecordFilterError increments the filter failure counter.
func (p *PrometheusCollector) RecordFilterError() {
	p.ensureRegistered()
	p.filterErrors.Inc()
}

// RecordDecodeDropped increments the dropped-message counter.
func (p *PrometheusCollector) RecordDecodeDropped() {
	p.ensureRegistered()
	p.decodeDropped.Inc()
}
