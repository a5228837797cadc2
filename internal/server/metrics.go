package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the prediction collectors. Each Server owns its registry so
// tests can build several servers without duplicate registration panics.
type metrics struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	latency     prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardio",
			Name:      "predictions_total",
			Help:      "Predictions served, by label.",
		}, []string{"heart_disease"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardio",
			Name:      "prediction_failures_total",
			Help:      "Prediction requests that did not produce a label, by reason.",
		}, []string{"reason"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cardio",
			Name:      "prediction_duration_seconds",
			Help:      "Time spent encoding and scoring a request.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	m.registry.MustRegister(
		m.predictions,
		m.failures,
		m.latency,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) observe(labels ...int) {
	for _, l := range labels {
		m.predictions.WithLabelValues(strconv.Itoa(l)).Inc()
	}
}

func (m *metrics) fail(reason string) {
	m.failures.WithLabelValues(reason).Inc()
}
