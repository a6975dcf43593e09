package interfaces

import "github.com/prometheus/client_golang/prometheus"

type Metrics interface {
	GetRegistry() *prometheus.Registry
	IncCounterVec(name string, labels ...string)
	AddCounterVec(name string, value float64, labels ...string)
	ObserveHistogramVec(name string, value float64, labels ...string)
	SetGauge(name string, value float64)
	// RegisterCounterVec registers a new counter metric with labels.
	RegisterCounterVec(name, help string, labels []string)
	// RegisterHistogramVec registers a new histogram metric with labels.
	RegisterHistogramVec(name, help string, buckets []float64, labels []string)
	// RegisterGauge registers a new gauge metric.
	RegisterGauge(name, help string)
}
