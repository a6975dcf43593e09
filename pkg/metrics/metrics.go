package metrics

import (
	"sync"

	"github.com/haguru/bookshelf/internal/interfaces"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a flexible Prometheus metrics collector.
// Metric names are prefixed with the namespace given to NewMetrics.
// Recording into a metric that was never registered is a no-op.
type Metrics struct {
	Registry      *prometheus.Registry
	namespace     string
	mu            sync.RWMutex
	counterVecs   map[string]*prometheus.CounterVec
	histogramVecs map[string]*prometheus.HistogramVec
	gauges        map[string]prometheus.Gauge
}

// NewMetrics creates a new flexible Metrics instance.
func NewMetrics(namespace string) interfaces.Metrics {
	return &Metrics{
		Registry:      prometheus.NewRegistry(),
		namespace:     namespace,
		counterVecs:   make(map[string]*prometheus.CounterVec),
		histogramVecs: make(map[string]*prometheus.HistogramVec),
		gauges:        make(map[string]prometheus.Gauge),
	}
}

// GetRegistry returns the Prometheus registry.
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.Registry
}

// RegisterCounterVec registers a new counter metric with labels.
func (m *Metrics) RegisterCounterVec(name, help string, labels []string) {
	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
	}, labels)
	m.Registry.MustRegister(counterVec)

	m.mu.Lock()
	m.counterVecs[name] = counterVec
	m.mu.Unlock()
}

// RegisterHistogramVec registers a new histogram metric with labels.
func (m *Metrics) RegisterHistogramVec(name, help string, buckets []float64, labels []string) {
	histogramVec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	m.Registry.MustRegister(histogramVec)

	m.mu.Lock()
	m.histogramVecs[name] = histogramVec
	m.mu.Unlock()
}

// RegisterGauge registers a new gauge metric.
func (m *Metrics) RegisterGauge(name, help string) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
	})
	m.Registry.MustRegister(gauge)

	m.mu.Lock()
	m.gauges[name] = gauge
	m.mu.Unlock()
}

// IncCounterVec increments a counter in a CounterVec with labels.
func (m *Metrics) IncCounterVec(name string, labels ...string) {
	m.AddCounterVec(name, 1, labels...)
}

// AddCounterVec adds a value to a CounterVec with labels.
func (m *Metrics) AddCounterVec(name string, value float64, labels ...string) {
	m.mu.RLock()
	counterVec, ok := m.counterVecs[name]
	m.mu.RUnlock()
	if ok {
		counterVec.WithLabelValues(labels...).Add(value)
	}
}

// ObserveHistogramVec observes a value in a histogram with labels.
func (m *Metrics) ObserveHistogramVec(name string, value float64, labels ...string) {
	m.mu.RLock()
	histogramVec, ok := m.histogramVecs[name]
	m.mu.RUnlock()
	if ok {
		histogramVec.WithLabelValues(labels...).Observe(value)
	}
}

// SetGauge sets a gauge to a specific value.
func (m *Metrics) SetGauge(name string, value float64) {
	m.mu.RLock()
	gauge, ok := m.gauges[name]
	m.mu.RUnlock()
	if ok {
		gauge.Set(value)
	}
}
