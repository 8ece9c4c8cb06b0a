package prometheus

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/SuburbROI-Intelligence/internal/config"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{
		Namespace: "test",
		Subsystem: "unit",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{Subsystem: "unit"}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestNewMetricsCollector_WithProcessMetrics(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{
		Namespace:            "test",
		EnableProcessMetrics: true,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Contains(t, scrapeMetrics(t, c), "process_cpu_seconds_total")
}

func TestNewCollectorFromConfig(t *testing.T) {
	c, err := NewCollectorFromConfig(config.MetricsConfig{Enabled: false}, logging.NewNopLogger())
	require.NoError(t, err)
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, err = NewCollectorFromConfig(config.MetricsConfig{Enabled: true, Namespace: "suburb_roi"}, logging.NewNopLogger())
	require.NoError(t, err)
	c.RegisterCounter("sample_total", "sample").WithLabelValues().Inc()
	assert.Contains(t, scrapeMetrics(t, c), "suburb_roi_sample_total 1")

	_, err = NewCollectorFromConfig(config.MetricsConfig{Enabled: true}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestRegisterCounter_WithLabels(t *testing.T) {
	c := newTestCollector(t)
	vec := c.RegisterCounter("upstream_calls", "Upstream calls", "endpoint")
	for i := 0; i < 3; i++ {
		vec.WithLabelValues("/api/predict").Inc()
	}
	vec.WithLabelValues("/api/features").Inc()
	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_upstream_calls{endpoint="/api/predict"} 3`)
	assert.Contains(t, out, `test_unit_upstream_calls{endpoint="/api/features"} 1`)
}

func TestRegisterCounter_DuplicateSharesVector(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("dup_counter", "help").WithLabelValues().Inc()
	c.RegisterCounter("dup_counter", "help").WithLabelValues().Inc()
	assert.Contains(t, scrapeMetrics(t, c), "test_unit_dup_counter 2")
}

func TestRegisterGauge(t *testing.T) {
	c := newTestCollector(t)
	g := c.RegisterGauge("registry_features", "Features in the registry")
	g.WithLabelValues().Set(13)
	g.WithLabelValues().Dec()
	g.WithLabelValues().Inc()
	g.WithLabelValues().Dec()
	assert.Contains(t, scrapeMetrics(t, c), "test_unit_registry_features 12")
}

func TestRegisterHistogram_DefaultBuckets(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterHistogram("latency", "Latency", nil).WithLabelValues().Observe(0.1)
	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "test_unit_latency_bucket")
	assert.Contains(t, out, "test_unit_latency_count 1")
}

func TestRegisterHistogram_CustomBuckets(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterHistogram("prediction_seconds", "Prediction latency", []float64{0.5, 2}, "mode").WithLabelValues("scenario").Observe(1)
	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_prediction_seconds_bucket{mode="scenario",le="0.5"} 0`)
	assert.Contains(t, out, `test_unit_prediction_seconds_bucket{mode="scenario",le="2"} 1`)
}

func TestConcurrentRegistration(t *testing.T) {
	c := newTestCollector(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RegisterCounter("concurrent_metric", "help", "id").WithLabelValues("1").Inc()
		}()
	}
	wg.Wait()
	assert.Contains(t, scrapeMetrics(t, c), `test_unit_concurrent_metric{id="1"} 50`)
}

func TestTypeMismatch_FallsBackToNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("conflict", "help").WithLabelValues().Inc()

	gauge := c.RegisterGauge("conflict", "help")
	assert.NotPanics(t, func() { gauge.WithLabelValues().Set(10) })
	assert.Contains(t, scrapeMetrics(t, c), "# TYPE test_unit_conflict counter")
}

func TestNoopCollector(t *testing.T) {
	c := NewNoopCollector()
	assert.NotPanics(t, func() {
		c.RegisterCounter("a", "a", "l").WithLabelValues("x").Inc()
		c.RegisterGauge("b", "b").WithLabelValues().Set(1)
		c.RegisterGauge("b", "b").WithLabelValues().Dec()
		c.RegisterHistogram("c", "c", nil).WithLabelValues().Observe(1)
	})
}
