// Package prometheus keeps client_golang behind a small MetricsCollector so
// the scenario services record metrics without importing it, and so a
// disabled metrics stack costs nothing.
package prometheus

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/SuburbROI-Intelligence/internal/config"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
)

// MetricsCollector registers metric vectors and serves them for scraping.
type MetricsCollector interface {
	RegisterCounter(name, help string, labels ...string) CounterVec
	RegisterGauge(name, help string, labels ...string) GaugeVec
	RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec
	Handler() http.Handler
}

type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
}

type Counter interface {
	Inc()
}

type GaugeVec interface {
	WithLabelValues(lvs ...string) Gauge
}

type Gauge interface {
	Set(value float64)
	Inc()
	Dec()
}

type HistogramVec interface {
	WithLabelValues(lvs ...string) Histogram
}

type Histogram interface {
	Observe(value float64)
}

// CollectorConfig configures NewMetricsCollector.  Buckets is used for
// histograms registered without their own.
type CollectorConfig struct {
	Namespace            string
	Subsystem            string
	EnableProcessMetrics bool
	EnableGoMetrics      bool
	Buckets              []float64
}

type registryCollector struct {
	registry *prometheus.Registry
	cfg      CollectorConfig
	logger   logging.Logger

	mu     sync.Mutex
	byName map[string]prometheus.Collector
}

// NewMetricsCollector creates a collector with its own registry.
func NewMetricsCollector(cfg CollectorConfig, logger logging.Logger) (MetricsCollector, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("metrics namespace is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Buckets == nil {
		cfg.Buckets = DefaultHTTPDurationBuckets
	}

	registry := prometheus.NewRegistry()
	if cfg.EnableProcessMetrics {
		registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: cfg.Namespace}))
	}
	if cfg.EnableGoMetrics {
		registry.MustRegister(prometheus.NewGoCollector())
	}

	return &registryCollector{
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		byName:   make(map[string]prometheus.Collector),
	}, nil
}

// NewCollectorFromConfig builds the process collector from the metrics
// section of the configuration.  Disabled metrics yield a no-op collector.
func NewCollectorFromConfig(cfg config.MetricsConfig, logger logging.Logger) (MetricsCollector, error) {
	if !cfg.Enabled {
		return NewNoopCollector(), nil
	}
	return NewMetricsCollector(CollectorConfig{
		Namespace:            cfg.Namespace,
		EnableProcessMetrics: cfg.EnableProcessMetrics,
		EnableGoMetrics:      cfg.EnableGoMetrics,
	}, logger)
}

func (c *registryCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// registerVec registers vec under name, or returns the vector already
// registered there.  ok is false when registration fails or the existing
// metric has a different type.
func registerVec[V prometheus.Collector](c *registryCollector, name, kind string, vec V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fq := prometheus.BuildFQName(c.cfg.Namespace, c.cfg.Subsystem, name)
	if existing, found := c.byName[fq]; found {
		v, ok := existing.(V)
		if !ok {
			c.logger.Warn("metric type mismatch", logging.String("name", fq), logging.String("type", kind))
		}
		return v, ok
	}
	if err := c.registry.Register(vec); err != nil {
		c.logger.Error("failed to register metric", logging.String("name", fq), logging.String("type", kind), logging.Err(err))
		var zero V
		return zero, false
	}
	c.byName[fq] = vec
	return vec, true
}

func (c *registryCollector) RegisterCounter(name, help string, labels ...string) CounterVec {
	vec, ok := registerVec(c, name, "counter", prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.cfg.Namespace, Subsystem: c.cfg.Subsystem, Name: name, Help: help,
	}, labels))
	if !ok {
		return noopCounters{}
	}
	return counterVec{vec}
}

func (c *registryCollector) RegisterGauge(name, help string, labels ...string) GaugeVec {
	vec, ok := registerVec(c, name, "gauge", prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.cfg.Namespace, Subsystem: c.cfg.Subsystem, Name: name, Help: help,
	}, labels))
	if !ok {
		return noopGauges{}
	}
	return gaugeVec{vec}
}

func (c *registryCollector) RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	if buckets == nil {
		buckets = c.cfg.Buckets
	}
	vec, ok := registerVec(c, name, "histogram", prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.cfg.Namespace, Subsystem: c.cfg.Subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels))
	if !ok {
		return noopHistograms{}
	}
	return histogramVec{vec}
}

type counterVec struct{ *prometheus.CounterVec }

func (v counterVec) WithLabelValues(lvs ...string) Counter {
	return v.CounterVec.WithLabelValues(lvs...)
}

type gaugeVec struct{ *prometheus.GaugeVec }

func (v gaugeVec) WithLabelValues(lvs ...string) Gauge { return v.GaugeVec.WithLabelValues(lvs...) }

type histogramVec struct{ *prometheus.HistogramVec }

func (v histogramVec) WithLabelValues(lvs ...string) Histogram {
	return v.HistogramVec.WithLabelValues(lvs...)
}

// NewNoopCollector returns a MetricsCollector whose metrics discard every
// observation.  Its Handler answers 404.
func NewNoopCollector() MetricsCollector { return noopCollector{} }

type noopCollector struct{}

func (noopCollector) RegisterCounter(string, string, ...string) CounterVec { return noopCounters{} }
func (noopCollector) RegisterGauge(string, string, ...string) GaugeVec     { return noopGauges{} }
func (noopCollector) RegisterHistogram(string, string, []float64, ...string) HistogramVec {
	return noopHistograms{}
}
func (noopCollector) Handler() http.Handler { return http.NotFoundHandler() }

type (
	noopCounters   struct{}
	noopGauges     struct{}
	noopHistograms struct{}
	noopMetric     struct{}
)

func (noopCounters) WithLabelValues(...string) Counter     { return noopMetric{} }
func (noopGauges) WithLabelValues(...string) Gauge         { return noopMetric{} }
func (noopHistograms) WithLabelValues(...string) Histogram { return noopMetric{} }

func (noopMetric) Inc()            {}
func (noopMetric) Dec()            {}
func (noopMetric) Set(float64)     {}
func (noopMetric) Observe(float64) {}
