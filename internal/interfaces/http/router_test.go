package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SuburbROI-Intelligence/internal/app"
	"github.com/turtacn/SuburbROI-Intelligence/internal/config"
	"github.com/turtacn/SuburbROI-Intelligence/internal/domain/scenario"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SuburbROI-Intelligence/internal/testutil"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router     *gin.Engine
	api        *testutil.FakeROIAPI
	components *app.Components
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	api := testutil.NewFakeROIAPI(t)

	cfg := config.NewDefaultConfig()
	cfg.Upstream.BaseURL = api.URL()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	for _, fn := range mutate {
		fn(cfg)
	}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "api_test"}, logging.NewNopLogger())
	require.NoError(t, err)
	c, err := app.Build(context.Background(), cfg, logging.NewNopLogger(), app.WithCollector(collector))
	require.NoError(t, err)
	t.Cleanup(c.Close)

	rc := NewRouterConfig(c, "test")
	if l, ok := rc.RateLimiter.(interface{ Stop() }); ok {
		t.Cleanup(l.Stop)
	}
	return &testEnv{router: NewRouter(rc), api: api, components: c}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func TestProbes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alive"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	// The catalog has not been loaded yet.
	w = env.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var ready struct {
		Status     string `json:"status"`
		Components map[string]struct {
			Status string `json:"status"`
		} `json:"components"`
	}
	decode(t, w, &ready)
	assert.Equal(t, "not_ready", ready.Status)
	assert.Equal(t, "healthy", ready.Components["upstream"].Status)
	assert.Equal(t, "unhealthy", ready.Components["catalog"].Status)

	_, err := env.components.Catalog.Load(context.Background())
	require.NoError(t, err)
	w = env.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadiness_ModelNotLoaded(t *testing.T) {
	env := newTestEnv(t)
	env.api.Configure(func(f *testutil.FakeROIAPI) { f.Health.ModelLoaded = false })

	w := env.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "upstream model is not loaded")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/v1/presets", nil)

	w := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `api_test_http_requests_total{method="GET",path="/api/v1/presets",status_code="200"} 1`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Metrics.Enabled = false })
	w := env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeaturesAndGuidance_LoadLazily(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/features", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feats struct {
		Features []struct {
			Feature string `json:"feature"`
		} `json:"features"`
	}
	decode(t, w, &feats)
	assert.Len(t, feats.Features, 4)
	assert.Equal(t, "IRSD_Score", feats.Features[0].Feature)

	w = env.do(t, http.MethodGet, "/api/v1/guidance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "weekly_rent")
	assert.Equal(t, 1, env.api.Count("/api/features"), "registry is reused once loaded")
}

func TestRefreshCatalog(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/v1/features", nil)

	w := env.do(t, http.MethodPost, "/api/v1/catalog/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"features":4`)
	assert.Equal(t, 2, env.api.Count("/api/features"))
}

func TestFeatures_UpstreamDown(t *testing.T) {
	env := newTestEnv(t)
	env.api.Configure(func(f *testutil.FakeROIAPI) { f.FailPaths["/api/features"] = true })

	w := env.do(t, http.MethodGet, "/api/v1/features", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp struct {
		Code string `json:"code"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "SRC_001", resp.Code)
}

func TestPresets(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/presets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "balanced")
	assert.Contains(t, w.Body.String(), "defensive")
	assert.Empty(t, env.api.Requests())
}

func TestEngineer(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/scenario/engineer", map[string]interface{}{
		"inputs": map[string]interface{}{"monthly_mortgage": 2600, "weekly_rent": "620"},
		"preset": "defensive",
		"edits":  map[string]interface{}{"Senior_Share": 0.3, "Unknown": 1},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		FeatureValues map[string]float64 `json:"feature_values"`
		Derivation    map[string]float64 `json:"derivation"`
		PresetApplied bool               `json:"preset_applied"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.PresetApplied)
	assert.Len(t, resp.FeatureValues, 4)
	assert.Equal(t, 0.3, resp.FeatureValues["Senior_Share"])
	assert.Equal(t, 1100.0, resp.FeatureValues["IRSD_Score"])
	assert.Equal(t, 2600.0, resp.Derivation["monthly_mortgage"])
	assert.Equal(t, 620.0, resp.Derivation["weekly_rent"])
}

func TestEngineer_HugeMortgageStillEncodes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/scenario/engineer", map[string]interface{}{
		"inputs": map[string]interface{}{"monthly_mortgage": "1e308"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Body.Bytes())

	var resp struct {
		Derivation map[string]float64 `json:"derivation"`
	}
	decode(t, w, &resp)
	assert.Equal(t, scenario.MaxMonthlyMortgage, resp.Derivation["monthly_mortgage"])
	assert.Greater(t, resp.Derivation["weekly_household_income"], 0.0)
}

func TestEngineer_UnknownPresetIsNotice(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/scenario/engineer", map[string]interface{}{"preset": "moonshot"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		PresetApplied bool   `json:"preset_applied"`
		Notice        string `json:"notice"`
	}
	decode(t, w, &resp)
	assert.False(t, resp.PresetApplied)
	assert.Contains(t, resp.Notice, `unknown preset "moonshot" ignored`)
}

func TestEngineer_BadBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scenario/engineer", bytes.NewBufferString("{nope"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestApplyPreset(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/scenario/presets/Defensive/apply", map[string]interface{}{
		"feature_values": map[string]float64{"Senior_Share": 0.1, "Bogus": 9},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		FeatureValues map[string]float64 `json:"feature_values"`
		PresetApplied bool               `json:"preset_applied"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.PresetApplied)
	assert.Equal(t, 0.24, resp.FeatureValues["Senior_Share"])
	assert.Equal(t, 1900.0, resp.FeatureValues["Median_tot_hhd_inc_weekly"], "unset features start at the median")
	assert.NotContains(t, resp.FeatureValues, "Bogus")
}

func TestApplyEdits(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/scenario/edits", map[string]interface{}{
		"feature_values": map[string]float64{"IRSD_Score": 990},
		"edits":          map[string]interface{}{"IRSD_Score": "not a number", "Senior_Share": "0.2"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		FeatureValues map[string]float64 `json:"feature_values"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 990.0, resp.FeatureValues["IRSD_Score"], "bad text keeps the current value")
	assert.Equal(t, 0.2, resp.FeatureValues["Senior_Share"])

	w = env.do(t, http.MethodPost, "/api/v1/scenario/edits", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryBuilding(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/query/listing?min_roi=4.5&name=%20park%20&top_n=1000&max_price=abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Query  string            `json:"query"`
		Params map[string]string `json:"params"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "min_roi=4.5&name=park&top_n=200", resp.Query)
	assert.NotContains(t, resp.Params, "max_price")

	w = env.do(t, http.MethodGet, "/api/v1/query/opportunities", nil)
	decode(t, w, &resp)
	assert.Equal(t, "top_n=20", resp.Query)

	w = env.do(t, http.MethodGet, "/api/v1/query/nearest?roi=0.0625", nil)
	decode(t, w, &resp)
	assert.Equal(t, "roi=0.0625&top_n=5", resp.Query)

	w = env.do(t, http.MethodGet, "/api/v1/query/nearest", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/query/opportunities?top_n=ten", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.api.Requests(), "query building never calls upstream")
}

func TestReportURL(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/report-url?format=PDF&max_price=900000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Format string `json:"format"`
		URL    string `json:"url"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "pdf", resp.Format)
	assert.Equal(t, env.api.URL()+"/api/report/pdf?max_price=900000&top_n=30", resp.URL)

	w = env.do(t, http.MethodGet, "/api/v1/report-url?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "QRY_001")
	assert.Empty(t, env.api.Requests())
}

func TestListingProxies(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/suburbs?min_seifa=950", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Parramatta")
	req, ok := env.api.LastRequest("/api/suburbs")
	require.True(t, ok)
	assert.Equal(t, "950", req.Query.Get("min_seifa"))
	assert.Equal(t, "30", req.Query.Get("top_n"))

	w = env.do(t, http.MethodGet, "/api/v1/suburbs/names?q=par&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Parkes")

	w = env.do(t, http.MethodGet, "/api/v1/opportunities?top_n=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	req, _ = env.api.LastRequest("/api/opportunities")
	assert.Equal(t, "5", req.Query.Get("top_n"))
	var opp client.OpportunitiesResponse
	decode(t, w, &opp)
	assert.Equal(t, 3, opp.Summary.SuburbsAnalyzed)
}

func TestListingProxy_UpstreamRejects(t *testing.T) {
	env := newTestEnv(t)
	env.api.Configure(func(f *testutil.FakeROIAPI) { f.FailPaths["/api/suburbs"] = true })

	w := env.do(t, http.MethodGet, "/api/v1/suburbs", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "COMMON_014")
}

func TestPredict_Scenario(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/predict", map[string]interface{}{
		"suburb_name": "Parramatta",
		"active":      []string{"IRSD_Score", "Senior_Share", "Bogus"},
		"edits":       map[string]interface{}{"Senior_Share": 0.2},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sent, ok := env.api.LastRequest("/api/predict")
	require.True(t, ok)
	var body client.PredictRequest
	require.NoError(t, json.Unmarshal(sent.Body, &body))
	require.NotNil(t, body.SuburbName)
	assert.Equal(t, "Parramatta", *body.SuburbName)
	assert.Len(t, body.FeatureValues, 2)
	assert.Equal(t, 0.2, body.FeatureValues["Senior_Share"])

	var resp struct {
		Prediction struct {
			PredictedROIPercent float64 `json:"predicted_roi_percent"`
			Signal              string  `json:"signal"`
		} `json:"prediction"`
		Comparables []client.Comparable `json:"comparables"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 6.25, resp.Prediction.PredictedROIPercent)
	assert.Equal(t, "Strong", resp.Prediction.Signal)
	require.Len(t, resp.Comparables, 1)
	assert.Equal(t, "Parkes", resp.Comparables[0].Name)

	nearest, _ := env.api.LastRequest("/api/suburbs-near-roi")
	assert.Equal(t, "0.0625", nearest.Query.Get("roi"))
}

func TestPredict_SuburbDefaults(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/predict", map[string]interface{}{
		"suburb_name":         "Parkes",
		"use_suburb_defaults": true,
		"comparables":         0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sent, _ := env.api.LastRequest("/api/predict")
	assert.JSONEq(t, `{"suburb_name":"Parkes","feature_values":{}}`, string(sent.Body))
	assert.Zero(t, env.api.Count("/api/features"))
	assert.Zero(t, env.api.Count("/api/suburbs-near-roi"))
}

func TestPredict_SuburbDefaultsWithoutSuburb(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/predict", map[string]interface{}{
		"use_suburb_defaults": true,
		"comparables":         0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sent, _ := env.api.LastRequest("/api/predict")
	assert.JSONEq(t, `{"suburb_name":null,"feature_values":{}}`, string(sent.Body))
}

func TestPredict_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/predict", map[string]interface{}{"comparables": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/predict", map[string]interface{}{"active": []string{"Bogus"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.api.Count("/api/predict"))
}

func TestPredict_InBandError(t *testing.T) {
	env := newTestEnv(t)
	env.api.Configure(func(f *testutil.FakeROIAPI) {
		f.Predict = func(client.PredictRequest) client.PredictResponse {
			return client.PredictResponse{Error: "model not loaded"}
		}
	})

	w := env.do(t, http.MethodPost, "/api/v1/predict", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	var resp struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "PRD_001", resp.Code)
	assert.Equal(t, "model not loaded", resp.Detail)
}

func TestNearest(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/nearest?roi=0.06&top_n=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	req, _ := env.api.LastRequest("/api/suburbs-near-roi")
	assert.Equal(t, "0.06", req.Query.Get("roi"))
	assert.Equal(t, "3", req.Query.Get("top_n"))

	w = env.do(t, http.MethodGet, "/api/v1/nearest?roi=NaN", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Server.RateLimitRPS = 0.001
		c.Server.RateLimitBurst = 1
	})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/presets", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodGet, "/api/v1/presets", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", nil).Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Server.CORSAllowedOrigins = []string{"https://dash.example.com"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/presets", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dash.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
