package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Estimate outcomes used as the counter label.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	Registry    *prometheus.Registry
	estimates   *prometheus.CounterVec
	latency     prometheus.Histogram
	modelLoaded prometheus.Gauge
}

// NewMetrics registers the collectors on reg, or on a fresh registry when
// reg is nil.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Registry: reg,
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasador",
			Name:      "estimates_total",
			Help:      "Price estimates by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tasador",
			Name:      "estimate_duration_seconds",
			Help:      "Time spent computing a price estimate.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		modelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tasador",
			Name:      "model_loaded",
			Help:      "1 when a price model artifact is loaded.",
		}),
	}
	reg.MustRegister(
		m.estimates,
		m.latency,
		m.modelLoaded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, o := range []string{OutcomeOK, OutcomeInvalid, OutcomeUnavailable, OutcomeFailed} {
		m.estimates.WithLabelValues(o)
	}
	return m
}

// SetModelLoaded updates the model_loaded gauge.
func (m *Metrics) SetModelLoaded(loaded bool) {
	if loaded {
		m.modelLoaded.Set(1)
		return
	}
	m.modelLoaded.Set(0)
}

func (m *Metrics) observe(outcome string, elapsed time.Duration) {
	m.estimates.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.latency.Observe(elapsed.Seconds())
	}
}
