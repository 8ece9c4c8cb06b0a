package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SuburbROI-Intelligence/internal/testutil"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/bad", func(c *gin.Context) { c.String(http.StatusBadRequest, "bad") })
	r.GET("/boom", func(c *gin.Context) { c.String(http.StatusBadGateway, "boom") })
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serve(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ok", func(c *gin.Context) { seen = GetRequestID(c) })

	w := serve(r, http.MethodGet, "/ok", nil)
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	w = serve(r, http.MethodGet, "/ok", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", seen)
}

func TestRequestID_PropagatesToRequestContext(t *testing.T) {
	var fromCtx string
	r := newEngine(RequestID())
	r.GET("/ctx", func(c *gin.Context) {
		fromCtx, _ = client.RequestIDFromContext(c.Request.Context())
	})

	serve(r, http.MethodGet, "/ctx", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", fromCtx)
}

func TestRequestID_RejectsOversizedID(t *testing.T) {
	r := newEngine(RequestID())
	long := make([]byte, maxRequestIDLen+1)
	for i := range long {
		long[i] = 'x'
	}
	w := serve(r, http.MethodGet, "/ok", map[string]string{RequestIDHeader: string(long)})
	assert.NotEqual(t, string(long), w.Header().Get(RequestIDHeader))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestRequestLogging_Levels(t *testing.T) {
	logger := testutil.NewMockLogger()
	r := newEngine(RequestID(), RequestLogging(logger, DefaultLoggingConfig()))

	serve(r, http.MethodGet, "/ok", nil)
	serve(r, http.MethodGet, "/bad", nil)
	serve(r, http.MethodGet, "/boom", nil)

	msg, ok := logger.Find("info", "request completed")
	require.True(t, ok)
	status, _ := msg.Field("status")
	assert.Equal(t, int64(http.StatusOK), status)
	rid, _ := msg.Field("request_id")
	assert.NotEmpty(t, rid)

	assert.True(t, logger.HasMessage("warn", "request rejected"))
	assert.True(t, logger.HasMessage("error", "request failed"))
}

func TestRequestLogging_SkipsProbes(t *testing.T) {
	logger := testutil.NewMockLogger()
	r := newEngine(RequestLogging(logger, DefaultLoggingConfig()))

	serve(r, http.MethodGet, "/healthz", nil)
	assert.Empty(t, logger.GetMessages())
}

func TestRequestLogging_SlowRequest(t *testing.T) {
	logger := testutil.NewMockLogger()
	r := gin.New()
	r.Use(RequestLogging(logger, LoggingConfig{SlowThreshold: time.Millisecond}))
	r.GET("/slow", func(c *gin.Context) {
		time.Sleep(5 * time.Millisecond)
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodGet, "/slow", nil)
	assert.True(t, logger.HasMessage("warn", "slow request"))
}

func TestRecovery(t *testing.T) {
	logger := testutil.NewMockLogger()
	r := newEngine(RequestID(), Recovery(logger))

	w := serve(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":"COMMON_001","message":"internal server error"}`, w.Body.String())
	assert.True(t, logger.HasMessage("error", "panic recovered"))
}

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "mw"}, logging.NewNopLogger())
	require.NoError(t, err)
	m := prometheus.NewAppMetrics(collector)

	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/presets/:name", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/presets/growth", nil)
	serve(r, http.MethodGet, "/nowhere", nil)

	out := serve(collector.Handler(), http.MethodGet, "/metrics", nil).Body.String()
	assert.Contains(t, out, `mw_http_requests_total{method="GET",path="/presets/:name",status_code="200"} 1`)
	assert.Contains(t, out, `mw_http_requests_total{method="GET",path="unmatched",status_code="404"} 1`)
	assert.Contains(t, out, `mw_http_active_requests{method="GET",path="/presets/:name"} 0`)
}

func TestMetrics_NilMetrics(t *testing.T) {
	r := newEngine(Metrics(nil))
	w := serve(r, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS_Preflight(t *testing.T) {
	r := newEngine(CORS(DefaultCORSConfig("https://app.example.com")))

	w := serve(r, http.MethodOptions, "/ok", map[string]string{"Origin": "https://app.example.com"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_Origins(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"exact match", []string{"https://a.io"}, "https://a.io", "https://a.io"},
		{"case insensitive", []string{"https://A.io"}, "https://a.io", "https://a.io"},
		{"subdomain pattern", []string{"*.example.com"}, "https://x.example.com", "https://x.example.com"},
		{"wildcard", []string{"*"}, "https://any.io", "*"},
		{"not allowed", []string{"https://a.io"}, "https://evil.io", ""},
		{"disabled", nil, "https://a.io", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(CORS(DefaultCORSConfig(tt.origins...)))
			w := serve(r, http.MethodGet, "/ok", map[string]string{"Origin": tt.origin})
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.want != "" {
				assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), RequestIDHeader)
			}
		})
	}
}

func TestTokenBucketLimiter(t *testing.T) {
	l := NewTokenBucketLimiter(1, 2, 0)
	defer l.Stop()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	ok, info := l.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 2, info.Limit)
	assert.Equal(t, 1, info.Remaining)

	ok, _ = l.Allow("a")
	assert.True(t, ok)
	ok, _ = l.Allow("a")
	assert.False(t, ok, "burst exhausted")

	ok, _ = l.Allow("b")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Second)
	ok, _ = l.Allow("a")
	assert.True(t, ok, "one token refilled")
	assert.Equal(t, 2, l.BucketCount())
}

func TestTokenBucketLimiter_Cleanup(t *testing.T) {
	l := NewTokenBucketLimiter(1, 1, 0)
	l.idleAfter = time.Minute
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(2 * time.Minute)
	l.cleanup()
	assert.Zero(t, l.BucketCount())
	l.Stop()
	l.Stop()
}

func TestRateLimit_Rejects(t *testing.T) {
	l := NewTokenBucketLimiter(0.001, 1, 0)
	defer l.Stop()
	r := newEngine(RateLimit(l, DefaultRateLimitConfig()))

	w := serve(r, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = serve(r, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "COMMON_007")

	w = serve(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code, "probes bypass the limiter")
}
