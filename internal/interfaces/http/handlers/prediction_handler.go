package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/SuburbROI-Intelligence/internal/application/prediction"
	"github.com/turtacn/SuburbROI-Intelligence/internal/domain/scenario"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// PredictionDefaults are the server-side defaults of a predict request.
type PredictionDefaults struct {
	NearestTopN    int
	ActiveFeatures int
}

// PredictionHandler runs scenario predictions and comparables lookups.
type PredictionHandler struct {
	service   prediction.Service
	scenarios *ScenarioHandler
	defaults  PredictionDefaults
	logger    logging.Logger
}

// NewPredictionHandler creates a new PredictionHandler.  Scenario building
// and the feature registry come from scenarios.
func NewPredictionHandler(service prediction.Service, scenarios *ScenarioHandler, defaults PredictionDefaults, logger logging.Logger) *PredictionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PredictionHandler{service: service, scenarios: scenarios, defaults: defaults, logger: logger}
}

// PredictRequest is the body of POST /api/v1/predict.
type PredictRequest struct {
	ScenarioInput
	SuburbName string `json:"suburb_name,omitempty"`
	// Active lists the features to send.  Empty selects the first
	// ActiveFeatures registry features.
	Active []string `json:"active,omitempty"`
	// UseSuburbDefaults sends no feature values so the suburb's own data is
	// used.  It requires SuburbName and ignores the scenario fields.
	UseSuburbDefaults bool `json:"use_suburb_defaults,omitempty"`
	// Comparables is the number of nearest-ROI suburbs to attach; nil uses
	// the server default and 0 disables the lookup.
	Comparables *int `json:"comparables,omitempty"`
}

// PredictResponse wraps a successful run.
type PredictResponse struct {
	*prediction.RunResult
	Notice string `json:"notice,omitempty"`
}

// Predict handles POST /api/v1/predict.
func (h *PredictionHandler) Predict(c *gin.Context) {
	var req PredictRequest
	if !bindJSON(c, &req) {
		return
	}
	// Without a suburb, use_suburb_defaults sends a null suburb and empty
	// values; the service answers with its median baseline.
	suburb := strings.TrimSpace(req.SuburbName)

	input := &prediction.RunInput{Suburb: suburb, ComparablesTopN: h.defaults.NearestTopN}
	if req.Comparables != nil {
		if *req.Comparables < 0 {
			writeAppError(c, errors.InvalidParam("comparables must not be negative"))
			return
		}
		input.ComparablesTopN = *req.Comparables
	}

	var notice string
	if req.UseSuburbDefaults {
		input.Override = map[string]float64{}
	} else {
		snap, err := readySnapshot(c.Request.Context(), h.scenarios.catalog)
		if err != nil {
			writeAppError(c, err)
			return
		}
		built := h.scenarios.build(req.ScenarioInput, snap)
		notice = built.Notice
		input.Vector = built.FeatureValues
		input.Active = resolveActive(req.Active, snap, h.defaults.ActiveFeatures)
		if input.Active.Len() == 0 {
			writeAppError(c, errors.InvalidParam("no known features selected in active"))
			return
		}
	}

	result, err := h.service.Run(c.Request.Context(), input)
	if err != nil {
		writeAppError(c, err)
		return
	}
	ok(c, PredictResponse{RunResult: result, Notice: notice})
}

// Nearest handles GET /api/v1/nearest?roi=&top_n=.
func (h *PredictionHandler) Nearest(c *gin.Context) {
	roi, err := requiredROI(c)
	if err != nil {
		writeAppError(c, err)
		return
	}
	topN, set, err := queryInt(c, "top_n")
	if err != nil {
		writeAppError(c, err)
		return
	}
	if !set {
		topN = h.defaults.NearestTopN
	}
	resp, err := h.service.Comparables(c.Request.Context(), roi, topN)
	if err != nil {
		writeAppError(c, err)
		return
	}
	ok(c, resp)
}

func resolveActive(features []string, snap *scenario.Snapshot, n int) scenario.ActiveSet {
	if len(features) == 0 {
		return scenario.DefaultActiveSet(snap, n)
	}
	set := scenario.NewActiveSet()
	for _, f := range features {
		set = set.Add(strings.TrimSpace(f), snap)
	}
	return set
}
