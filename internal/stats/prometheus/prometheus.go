// Package prometheus provides a Prometheus-based stats collector.
package prometheus

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/discochess/memo/internal/stats"
)

// Collector implements stats.Collector using Prometheus metrics.
// Metrics are registered lazily on first use.
type Collector struct {
	registry prometheus.Registerer
	labels   prometheus.Labels

	mu         sync.RWMutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// Compile-time check that Collector implements stats.Collector.
var _ stats.Collector = (*Collector)(nil)

// New creates a new Prometheus collector.
// If registry is nil, prometheus.DefaultRegisterer is used. labels are
// attached to every metric, which lets several caches share one registry.
func New(registry prometheus.Registerer, labels prometheus.Labels) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &Collector{
		registry:   registry,
		labels:     labels,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// IncCounter increments a counter metric.
func (c *Collector) IncCounter(name string, delta int64) {
	counter := getOrCreate(c, c.counters, name, func() prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Name:        name,
			Help:        stats.Help(name),
			ConstLabels: c.labels,
		})
	})
	counter.Add(float64(delta))
}

// SetGauge sets a gauge metric.
func (c *Collector) SetGauge(name string, value int64) {
	gauge := getOrCreate(c, c.gauges, name, func() prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        name,
			Help:        stats.Help(name),
			ConstLabels: c.labels,
		})
	})
	gauge.Set(float64(value))
}

// ObserveHistogram records a value in a histogram.
func (c *Collector) ObserveHistogram(name string, value float64) {
	histogram := getOrCreate(c, c.histograms, name, func() prometheus.Histogram {
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        name,
			Help:        stats.Help(name),
			ConstLabels: c.labels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 10),
		})
	})
	histogram.Observe(value)
}

// getOrCreate returns the metric cached under name, registering a new one
// built by create if needed. A metric already registered elsewhere with the
// same descriptor is reused.
func getOrCreate[M prometheus.Collector](c *Collector, cache map[string]M, name string, create func() M) M {
	c.mu.RLock()
	m, ok := cache[name]
	c.mu.RUnlock()
	if ok {
		return m
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok = cache[name]; ok {
		return m
	}

	m = create()
	if err := c.registry.Register(m); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(M); ok {
				m = existing
			}
		}
		// Otherwise keep the unregistered metric so callers still work.
	}
	cache[name] = m
	return m
}
