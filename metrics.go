package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are kept in a private registry so tests can build as many
// controllers as they like.
type Metrics struct {
	registry      *prometheus.Registry
	transmissions *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	duration      prometheus.Histogram
	queueDepth    prometheus.Gauge
}

func newMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fireplacerf",
				Name:      "transmissions_total",
				Help:      "Completed jobs by channel and result.",
			},
			[]string{"channel", "result"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fireplacerf",
				Name:      "rejected_total",
				Help:      "Commands that never reached the transmitter, by reason.",
			},
			[]string{"reason"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fireplacerf",
			Name:      "job_duration_seconds",
			Help:      "Time spent executing a job, sequence pauses included.",
			Buckets:   []float64{0.5, 1, 1.5, 2, 3, 5},
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fireplacerf",
			Name:      "queue_depth",
			Help:      "Jobs waiting for the transmitter.",
		}),
	}

	m.registry.MustRegister(
		m.transmissions,
		m.rejected,
		m.duration,
		m.queueDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
