package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SuburbROI-Intelligence/internal/testutil"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
)

func TestSuburbsCmd_OnlySetFiltersAreSent(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	out, _, err := runCLI(t, api, "suburbs", "--min-roi", "4.5", "--name", " park ")
	require.NoError(t, err)

	req, ok := api.LastRequest("/api/suburbs")
	require.True(t, ok)
	assert.Equal(t, "4.5", req.Query.Get("min_roi"))
	assert.Equal(t, "park", req.Query.Get("name"))
	assert.Equal(t, "30", req.Query.Get("top_n"))
	assert.False(t, req.Query.Has("max_price"))
	assert.False(t, req.Query.Has("min_seifa"))

	assert.Contains(t, out, "Parramatta")
	assert.Contains(t, out, "5.20%")
}

func TestSuburbsCmd_TopNClamped(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	_, _, err := runCLI(t, api, "suburbs", "--top-n", "1000")
	require.NoError(t, err)

	req, _ := api.LastRequest("/api/suburbs")
	assert.Equal(t, "200", req.Query.Get("top_n"))
}

func TestSuburbsCmd_JSON(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	out, _, err := runCLI(t, api, "-o", "json", "suburbs")
	require.NoError(t, err)

	var rows []client.Suburb
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 2)
}

func TestNamesCmd(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	out, _, err := runCLI(t, api, "names", "par", "--limit", "5")
	require.NoError(t, err)

	req, _ := api.LastRequest("/api/suburb-names")
	assert.Equal(t, "par", req.Query.Get("q"))
	assert.Equal(t, "5", req.Query.Get("limit"))
	assert.Contains(t, out, "Parkes")
}

func TestOpportunitiesCmd_DefaultTopN(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	out, _, err := runCLI(t, api, "opportunities")
	require.NoError(t, err)

	req, _ := api.LastRequest("/api/opportunities")
	assert.Equal(t, "20", req.Query.Get("top_n"))
	assert.Contains(t, out, "High yield")
	assert.Contains(t, out, "Suburbs analyzed: 3")
}

func TestReportURLCmd_MatchesListingQuery(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	out, _, err := runCLI(t, api, "-o", "json", "report-url", "--format", "PDF", "--max-price", "900000")
	require.NoError(t, err)

	var link reportLink
	require.NoError(t, json.Unmarshal([]byte(out), &link))
	assert.Equal(t, "pdf", link.Format)
	assert.Equal(t, api.URL()+"/api/report/pdf?max_price=900000&top_n=30", link.URL)
	assert.Zero(t, api.Count("/api/report/pdf"), "report-url must not download")
}

func TestReportURLCmd_BadFormat(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	_, _, err := runCLI(t, api, "report-url", "--format", "xlsx")
	assert.Error(t, err)
}

func TestNearestCmd(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	out, _, err := runCLI(t, api, "nearest", "--roi", "0.0625")
	require.NoError(t, err)

	req, _ := api.LastRequest("/api/suburbs-near-roi")
	assert.Equal(t, "0.0625", req.Query.Get("roi"))
	assert.Equal(t, "5", req.Query.Get("top_n"))
	assert.Contains(t, out, "Parkes")
	assert.Contains(t, out, "-0.15%")
}

func TestNearestCmd_RequiresROI(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	_, _, err := runCLI(t, api, "nearest")
	assert.Error(t, err)
	assert.Zero(t, api.Count("/api/suburbs-near-roi"))
}

func TestFeaturesCmd(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	out, _, err := runCLI(t, api, "features")
	require.NoError(t, err)
	assert.Contains(t, out, "IRSD_Score")
	assert.Contains(t, out, "Rent_to_Income_Ratio")
	assert.Equal(t, 1, api.Count("/api/features"))
	assert.Equal(t, 1, api.Count("/api/input-guidance"))
}

func TestFeaturesCmd_UpstreamFailure(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)
	api.Configure(func(f *testutil.FakeROIAPI) { f.FailPaths["/api/features"] = true })

	_, _, err := runCLI(t, api, "features")
	assert.Error(t, err)
}

func TestGuidanceCmd_SortedByKey(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	out, _, err := runCLI(t, api, "-o", "json", "guidance")
	require.NoError(t, err)

	var rows []struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "monthly_mortgage", rows[0].Key)
	assert.Equal(t, "weekly_rent", rows[1].Key)
}

func TestPresetsCmd_NoUpstreamCalls(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	out, _, err := runCLI(t, api, "presets")
	require.NoError(t, err)
	assert.Contains(t, out, "balanced")
	assert.Contains(t, out, "growth")
	assert.Contains(t, out, "defensive")
	assert.Empty(t, api.Requests())
}

func TestEngineerCmd_EditsApplyLast(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	out, _, err := runCLI(t, api, "-o", "json", "engineer",
		"--preset", "defensive", "--set", "Senior_Share=0.3", "--set", "Unknown_Feature=5")
	require.NoError(t, err)

	var view struct {
		Preset string             `json:"preset"`
		Vector map[string]float64 `json:"feature_values"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "defensive", view.Preset)
	assert.Len(t, view.Vector, 4)
	assert.Equal(t, 0.3, view.Vector["Senior_Share"])
	assert.Equal(t, 1100.0, view.Vector["IRSD_Score"])
	assert.Equal(t, 0.19, view.Vector["Rent_to_Income_Ratio"])
	assert.NotContains(t, view.Vector, "Unknown_Feature")
}

func TestEngineerCmd_UnknownPresetIsNotice(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	_, stderr, err := runCLI(t, api, "engineer", "--preset", "moonshot")
	require.NoError(t, err)
	assert.Contains(t, stderr, `unknown preset "moonshot" ignored`)
}

func TestPredictCmd_ScenarioMode(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	out, stderr, err := runCLI(t, api, "predict", "--suburb", "Parramatta",
		"--active", "IRSD_Score,Senior_Share,Bogus", "--set", "Senior_Share=0.2")
	require.NoError(t, err)

	req, ok := api.LastRequest("/api/predict")
	require.True(t, ok)
	var body struct {
		SuburbName    *string            `json:"suburb_name"`
		FeatureValues map[string]float64 `json:"feature_values"`
	}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	require.NotNil(t, body.SuburbName)
	assert.Equal(t, "Parramatta", *body.SuburbName)
	assert.Len(t, body.FeatureValues, 2)
	assert.Equal(t, 0.2, body.FeatureValues["Senior_Share"])

	nearest, ok := api.LastRequest("/api/suburbs-near-roi")
	require.True(t, ok)
	assert.Equal(t, "0.0625", nearest.Query.Get("roi"))

	assert.Contains(t, out, "Predicted ROI: 6.25%")
	assert.Contains(t, out, "Signal: Strong")
	assert.Contains(t, out, "+ positive")
	assert.Contains(t, out, "- negative")
	assert.Contains(t, out, "Comparable suburbs")
	assert.Contains(t, stderr, "OK: prediction complete")
}

func TestPredictCmd_SuburbDefaultsSendsEmptyValues(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	_, _, err := runCLI(t, api, "-o", "json", "predict", "--suburb", "Parkes", "--use-suburb-defaults", "--comparables", "0")
	require.NoError(t, err)

	req, _ := api.LastRequest("/api/predict")
	assert.JSONEq(t, `{"suburb_name":"Parkes","feature_values":{}}`, string(req.Body))
	assert.Zero(t, api.Count("/api/features"), "suburb defaults need no metadata")
	assert.Zero(t, api.Count("/api/suburbs-near-roi"))
}

func TestPredictCmd_SuburbDefaultsWithoutSuburb(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	_, _, err := runCLI(t, api, "-o", "json", "predict", "--use-suburb-defaults", "--comparables", "0")
	require.NoError(t, err)

	req, _ := api.LastRequest("/api/predict")
	assert.JSONEq(t, `{"suburb_name":null,"feature_values":{}}`, string(req.Body))
	assert.Zero(t, api.Count("/api/features"))
}

func TestPredictCmd_InBandError(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)
	api.Configure(func(f *testutil.FakeROIAPI) {
		f.Predict = func(client.PredictRequest) client.PredictResponse {
			return client.PredictResponse{Error: "model not loaded"}
		}
	})

	_, stderr, err := runCLI(t, api, "predict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
	assert.Contains(t, stderr, "FAILED: prediction failed")
}

func TestHealthCmd(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)

	out, _, err := runCLI(t, api, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: ok")
	assert.Contains(t, out, "Model target: median_roi")
	assert.Contains(t, out, "r2")
}

func TestHealthCmd_ModelNotLoaded(t *testing.T) {
	api := testutil.NewFakeROIAPI(t)
	api.Configure(func(f *testutil.FakeROIAPI) { f.Health.ModelLoaded = false })

	out, _, err := runCLI(t, api, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Model loaded: false")
	assert.Zero(t, api.Count("/api/model-info"))
	assert.NotContains(t, out, "No results.")
}
