package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/turtacn/SuburbROI-Intelligence/internal/application/catalog"
	"github.com/turtacn/SuburbROI-Intelligence/internal/domain/scenario"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// engineerSource labels engineer runs that arrive over HTTP.
const engineerSource = "api"

// ScenarioHandler serves feature metadata, presets and scenario engineering.
type ScenarioHandler struct {
	catalog *catalog.Loader
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

// NewScenarioHandler creates a new ScenarioHandler.
func NewScenarioHandler(loader *catalog.Loader, metrics *prometheus.AppMetrics, logger logging.Logger) *ScenarioHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ScenarioHandler{catalog: loader, metrics: metrics, logger: logger}
}

// ScenarioInput is the scenario part of engineer and predict requests.
// Input values may be JSON strings or numbers; text that does not parse
// falls back to the dataset median.
type ScenarioInput struct {
	Inputs map[string]interface{} `json:"inputs,omitempty"`
	// FeatureValues, when set, replaces engineering as the starting vector.
	FeatureValues map[string]float64     `json:"feature_values,omitempty"`
	Preset        string                 `json:"preset,omitempty"`
	Edits         map[string]interface{} `json:"edits,omitempty"`
}

// ScenarioResponse is the engineered vector.
type ScenarioResponse struct {
	FeatureValues scenario.FeatureVector `json:"feature_values"`
	Derivation    *scenario.Derivation   `json:"derivation,omitempty"`
	Preset        string                 `json:"preset,omitempty"`
	PresetApplied bool                   `json:"preset_applied"`
	Notice        string                 `json:"notice,omitempty"`
}

// build runs engineering (or seeds from FeatureValues), then the preset,
// then edits.  An unknown preset is reported in Notice and otherwise ignored.
func (h *ScenarioHandler) build(in ScenarioInput, snap *scenario.Snapshot) ScenarioResponse {
	var resp ScenarioResponse
	if in.FeatureValues != nil {
		resp.FeatureValues = seedVector(in.FeatureValues, snap)
	} else {
		res := scenario.EngineerDetailed(scenario.RawInputs(stringify(in.Inputs)), snap)
		prometheus.RecordEngineerRun(h.metrics, engineerSource)
		resp.FeatureValues = res.Vector
		resp.Derivation = &res.Derivation
	}

	if name := strings.TrimSpace(in.Preset); name != "" {
		_, known := scenario.LookupPreset(name)
		prometheus.RecordPresetApplication(h.metrics, name, known)
		resp.Preset = name
		resp.PresetApplied = known
		if known {
			resp.FeatureValues = scenario.ApplyPreset(name, resp.FeatureValues, snap)
		} else {
			resp.Notice = fmt.Sprintf("unknown preset %q ignored; available: %s",
				name, strings.Join(scenario.PresetNames(), ", "))
		}
	}

	if len(in.Edits) > 0 {
		resp.FeatureValues = scenario.ParseEdits(stringify(in.Edits), resp.FeatureValues, snap)
	}
	return resp
}

// seedVector overlays the known features of values onto the dataset medians.
func seedVector(values map[string]float64, snap *scenario.Snapshot) scenario.FeatureVector {
	out := snap.DefaultVector()
	for f, v := range values {
		if snap.Known(f) {
			out[f] = v
		}
	}
	return out
}

// stringify renders JSON scalars as the free text the scenario parsers
// expect.  Values cast cannot render become "", which parses as a fallback.
func stringify(in map[string]interface{}) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.TrimSpace(k)] = cast.ToString(v)
	}
	return out
}

// FeaturesResponse lists the model features.
type FeaturesResponse struct {
	Features []scenario.FeatureMeta `json:"features"`
	LoadedAt time.Time              `json:"loaded_at"`
}

// ListFeatures handles GET /api/v1/features.  ?refresh=true bypasses the
// metadata cache.
func (h *ScenarioHandler) ListFeatures(c *gin.Context) {
	var (
		snap *scenario.Snapshot
		err  error
	)
	if cast.ToBool(c.Query("refresh")) {
		snap, err = h.catalog.Refresh(c.Request.Context())
	} else {
		snap, err = readySnapshot(c.Request.Context(), h.catalog)
	}
	if err != nil {
		writeAppError(c, err)
		return
	}
	ok(c, FeaturesResponse{Features: snap.Features(), LoadedAt: snap.LoadedAt()})
}

// ListGuidance handles GET /api/v1/guidance.
func (h *ScenarioHandler) ListGuidance(c *gin.Context) {
	snap, err := readySnapshot(c.Request.Context(), h.catalog)
	if err != nil {
		writeAppError(c, err)
		return
	}
	ok(c, gin.H{"guidance": snap.GuidanceMap()})
}

// RefreshCatalog handles POST /api/v1/catalog/refresh.
func (h *ScenarioHandler) RefreshCatalog(c *gin.Context) {
	snap, err := h.catalog.Refresh(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	h.logger.Info("catalog refreshed", logging.Int("features", snap.Len()))
	ok(c, gin.H{"features": snap.Len(), "loaded_at": snap.LoadedAt()})
}

// ListPresets handles GET /api/v1/presets.  No upstream call is made.
func (h *ScenarioHandler) ListPresets(c *gin.Context) {
	ok(c, gin.H{"presets": scenario.Presets()})
}

// Engineer handles POST /api/v1/scenario/engineer.
func (h *ScenarioHandler) Engineer(c *gin.Context) {
	var in ScenarioInput
	if !bindJSON(c, &in) {
		return
	}
	snap, err := readySnapshot(c.Request.Context(), h.catalog)
	if err != nil {
		writeAppError(c, err)
		return
	}
	ok(c, h.build(in, snap))
}

// ApplyPreset handles POST /api/v1/scenario/presets/:name/apply.  The body's
// feature_values default to the dataset medians.  An unknown preset leaves
// the vector unchanged and reports preset_applied false.
func (h *ScenarioHandler) ApplyPreset(c *gin.Context) {
	var in struct {
		FeatureValues map[string]float64 `json:"feature_values"`
	}
	if !bindJSON(c, &in) {
		return
	}
	snap, err := readySnapshot(c.Request.Context(), h.catalog)
	if err != nil {
		writeAppError(c, err)
		return
	}
	values := in.FeatureValues
	if values == nil {
		values = snap.DefaultVector()
	}
	ok(c, h.build(ScenarioInput{FeatureValues: values, Preset: c.Param("name")}, snap))
}

// ApplyEdits handles POST /api/v1/scenario/edits.
func (h *ScenarioHandler) ApplyEdits(c *gin.Context) {
	var in struct {
		FeatureValues map[string]float64     `json:"feature_values"`
		Edits         map[string]interface{} `json:"edits"`
	}
	if !bindJSON(c, &in) {
		return
	}
	if len(in.Edits) == 0 {
		writeAppError(c, errors.InvalidParam("edits are required"))
		return
	}
	snap, err := readySnapshot(c.Request.Context(), h.catalog)
	if err != nil {
		writeAppError(c, err)
		return
	}
	values := in.FeatureValues
	if values == nil {
		values = snap.DefaultVector()
	}
	ok(c, h.build(ScenarioInput{FeatureValues: values, Edits: in.Edits}, snap))
}
