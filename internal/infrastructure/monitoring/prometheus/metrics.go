package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Prediction Layer
	PredictionsTotal       CounterVec
	PredictionDuration     HistogramVec
	PredictionSignalsTotal CounterVec
	ComparablesTotal       CounterVec

	// Scenario Layer
	EngineerRunsTotal       CounterVec
	PresetApplicationsTotal CounterVec

	// Catalog Layer
	CatalogLoadsTotal CounterVec
	RegistryFeatures  GaugeVec

	// Infrastructure Layer
	CacheHitsTotal       CounterVec
	CacheMissesTotal     CounterVec
	EventsPublishedTotal CounterVec

	// System Health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultUpstreamDurationBuckets = []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30}
)

// Label values shared by the Record helpers.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	ModeScenario = "scenario"
	ModeOverride = "override"
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Prediction
	m.PredictionsTotal = collector.RegisterCounter("predictions_total", "Prediction requests sent upstream", "mode", "status")
	m.PredictionDuration = collector.RegisterHistogram("prediction_duration_seconds", "Prediction round-trip duration", DefaultUpstreamDurationBuckets, "mode")
	m.PredictionSignalsTotal = collector.RegisterCounter("prediction_signals_total", "Investment signals returned", "signal")
	m.ComparablesTotal = collector.RegisterCounter("comparables_lookups_total", "Nearest-ROI comparable lookups", "status")

	// Scenario
	m.EngineerRunsTotal = collector.RegisterCounter("engineer_runs_total", "Feature engineering runs", "source")
	m.PresetApplicationsTotal = collector.RegisterCounter("preset_applications_total", "Preset applications", "preset", "known")

	// Catalog
	m.CatalogLoadsTotal = collector.RegisterCounter("catalog_loads_total", "Feature catalog loads", "source", "status")
	m.RegistryFeatures = collector.RegisterGauge("registry_features", "Features held by the active registry snapshot")

	// Infrastructure
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Events published to the broker", "topic", "status")

	// System Health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type")

	return m
}

// NewNoopAppMetrics returns AppMetrics backed by a no-op collector.
func NewNoopAppMetrics() *AppMetrics {
	return NewAppMetrics(NewNoopCollector())
}

// Helpers.  Every helper tolerates a nil *AppMetrics.

func status(ok bool) string {
	if ok {
		return StatusSuccess
	}
	return StatusFailure
}

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordPrediction(metrics *AppMetrics, mode string, success bool, duration time.Duration, signal string) {
	if metrics == nil {
		return
	}
	metrics.PredictionsTotal.WithLabelValues(mode, status(success)).Inc()
	metrics.PredictionDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if success && signal != "" {
		metrics.PredictionSignalsTotal.WithLabelValues(signal).Inc()
	}
}

func RecordComparables(metrics *AppMetrics, success bool) {
	if metrics == nil {
		return
	}
	metrics.ComparablesTotal.WithLabelValues(status(success)).Inc()
}

func RecordEngineerRun(metrics *AppMetrics, source string) {
	if metrics == nil {
		return
	}
	metrics.EngineerRunsTotal.WithLabelValues(source).Inc()
}

func RecordPresetApplication(metrics *AppMetrics, preset string, known bool) {
	if metrics == nil {
		return
	}
	metrics.PresetApplicationsTotal.WithLabelValues(preset, strconv.FormatBool(known)).Inc()
}

func RecordCatalogLoad(metrics *AppMetrics, source string, features int, err error) {
	if metrics == nil {
		return
	}
	metrics.CatalogLoadsTotal.WithLabelValues(source, status(err == nil)).Inc()
	if err == nil {
		metrics.RegistryFeatures.WithLabelValues().Set(float64(features))
	}
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if metrics == nil {
		return
	}
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordEventPublished(metrics *AppMetrics, topic string, err error) {
	if metrics == nil {
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(topic, status(err == nil)).Inc()
}

func RecordHealth(metrics *AppMetrics, component string, up bool) {
	if metrics == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	metrics.HealthCheckStatus.WithLabelValues(component).Set(v)
}

func RecordError(metrics *AppMetrics, component, errorType string) {
	if metrics == nil {
		return
	}
	metrics.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
