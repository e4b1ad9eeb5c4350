// Package monitor exposes Prometheus metrics for CTD driver operations.
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"i4.energy/across/ctdlink/ctd"
)

// Metrics records driver activity on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	lastSample *prometheus.GaugeVec
	busy       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ctd_operations_total",
				Help: "Driver operations by result.",
			},
			[]string{"op", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "ctd_operation_duration_seconds",
				Help: "Time spent in driver operations.",
				// command mode negotiation alone can take half a minute
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"op"},
		),
		lastSample: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ctd_last_sample",
				Help: "Most recent valid measurement by field.",
			},
			[]string{"field"},
		),
		busy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ctd_busy",
			Help: "1 while a driver operation is running.",
		}),
	}

	m.registry.MustRegister(
		m.operations,
		m.duration,
		m.lastSample,
		m.busy,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Track marks the start of op. The returned function records its result
// and duration.
func (m *Metrics) Track(op string) func(ctd.Result) {
	start := time.Now()
	m.busy.Set(1)
	return func(r ctd.Result) {
		m.busy.Set(0)
		m.Observe(op, r, time.Since(start))
	}
}

func (m *Metrics) Observe(op string, r ctd.Result, elapsed time.Duration) {
	m.operations.WithLabelValues(op, r.String()).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// RecordSample publishes the valid fields of s.
func (m *Metrics) RecordSample(s ctd.Sample) {
	fields := map[string]ctd.Maybe[float64]{
		"pressure":    s.Pressure,
		"temperature": s.Temperature,
		"salinity":    s.Salinity,
		"oxygen":      s.Oxygen,
	}
	for name, v := range fields {
		if v.Valid {
			m.lastSample.WithLabelValues(name).Set(v.Value)
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
