package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
)

// RecordedRequest is one call received by FakeROIAPI.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// FakeROIAPI is an in-process stand-in for the ROI service.  Change fields
// through Configure once the server is running.
type FakeROIAPI struct {
	Server *httptest.Server

	mu            sync.Mutex
	requests      []RecordedRequest
	Health        client.HealthStatus
	ModelInfo     client.ModelInfo
	Features      []client.FeatureStat
	Guidance      map[string]client.GuidanceRange
	Names         []string
	Suburbs       []client.Suburb
	Opportunities client.OpportunitiesResponse
	Nearest       client.NearestResponse
	// Predict builds the prediction reply.  The default echoes the request
	// values back as input_features.
	Predict func(req client.PredictRequest) client.PredictResponse
	// FailPaths answers the listed paths with 422, which the client does
	// not retry.
	FailPaths map[string]bool
}

// NewFakeROIAPI starts a fake service that is closed with the test.
func NewFakeROIAPI(t testing.TB) *FakeROIAPI {
	t.Helper()
	target := "median_roi"
	f := &FakeROIAPI{
		Health:    client.HealthStatus{Status: "ok", SuburbsLoaded: 3, ModelLoaded: true, ModelFeatures: 4},
		ModelInfo: client.ModelInfo{ModelLoaded: true, Target: &target, FeatureCount: 4, Metrics: map[string]float64{"r2": 0.71}},
		Features: []client.FeatureStat{
			{Feature: "IRSD_Score", Min: 800, Max: 1200, Median: 1000, Mean: 1002},
			{Feature: "Median_tot_hhd_inc_weekly", Min: 900, Max: 4000, Median: 1900, Mean: 2000},
			{Feature: "Rent_to_Income_Ratio", Min: 0.1, Max: 0.6, Median: 0.25, Mean: 0.26},
			{Feature: "Senior_Share", Min: 0.05, Max: 0.4, Median: 0.16, Mean: 0.17},
		},
		Guidance: map[string]client.GuidanceRange{
			"monthly_mortgage": {Min: 1200, Max: 4200, Median: 2100},
			"weekly_rent":      {Min: 300, Max: 900, Median: 520},
		},
		Names: []string{"Parramatta", "Parkes"},
		Suburbs: []client.Suburb{
			{Name: "Parramatta", Price: 850000, Rent: 620, ROI: 0.052, SEIFAScore: 1010},
			{Name: "Parkes", Price: 320000, Rent: 380, ROI: 0.061, SEIFAScore: 940},
		},
		Opportunities: client.OpportunitiesResponse{
			Summary: client.OpportunitySummary{AvgROIPercentTopN: 5.9, MedianROIPercentAll: 4.1, MaxROIPercent: 6.1, SuburbsAnalyzed: 3},
			Opportunities: []client.Opportunity{
				{Name: "Parkes", ROI: 0.061, Price: 320000, Rent: 380, SEIFAScore: 940, InsightTags: []string{"High yield"}},
			},
		},
		Nearest: client.NearestResponse{
			TargetROI: 0.0625,
			Suburbs:   []client.Comparable{{Name: "Parkes", ROI: 0.061, ROIDiff: -0.0015, Price: 320000, Rent: 380}},
		},
		FailPaths: map[string]bool{},
	}
	f.Predict = func(req client.PredictRequest) client.PredictResponse {
		score, percent, percentile := 0.0625, 6.25, 85.0
		impact := 0.8
		neg := -0.3
		return client.PredictResponse{
			SuburbName:          req.SuburbName,
			PredictedROIScore:   &score,
			PredictedROIPercent: &percent,
			Percentile:          &percentile,
			InvestmentSignal:    "Strong",
			InputFeatures:       req.FeatureValues,
			TopFactors: []client.Factor{
				{Feature: "IRSD_Score", Effect: "positive", ImpactScore: &impact},
				{Feature: "Rent_to_Income_Ratio", Effect: "negative", ImpactScore: &neg},
			},
		}
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL of the fake service.
func (f *FakeROIAPI) URL() string { return f.Server.URL }

// Configure mutates the fake under its lock.
func (f *FakeROIAPI) Configure(fn func(f *FakeROIAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// Requests returns a copy of every recorded call.
func (f *FakeROIAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// LastRequest returns the most recent call to path.
func (f *FakeROIAPI) LastRequest(path string) (RecordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Path == path {
			return f.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

// Count returns how many calls reached path.
func (f *FakeROIAPI) Count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (f *FakeROIAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, RecordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: body})

	if f.FailPaths[r.URL.Path] {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "rejected"})
		return
	}

	switch r.URL.Path {
	case "/api/health":
		writeJSON(w, http.StatusOK, f.Health)
	case "/api/model-info":
		writeJSON(w, http.StatusOK, f.ModelInfo)
	case "/api/features":
		writeJSON(w, http.StatusOK, map[string]interface{}{"features": f.Features})
	case "/api/input-guidance":
		writeJSON(w, http.StatusOK, map[string]interface{}{"guidance": f.Guidance})
	case "/api/suburb-names":
		writeJSON(w, http.StatusOK, map[string]interface{}{"names": f.Names})
	case "/api/suburbs":
		writeJSON(w, http.StatusOK, f.Suburbs)
	case "/api/opportunities":
		writeJSON(w, http.StatusOK, f.Opportunities)
	case "/api/suburbs-near-roi":
		writeJSON(w, http.StatusOK, f.Nearest)
	case "/api/predict":
		var req client.PredictRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, f.Predict(req))
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
