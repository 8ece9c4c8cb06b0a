// Package prediction turns scenario vectors into prediction requests, sends
// them through a Gateway and normalizes the replies into view-models.
package prediction

import (
	"math"
	"strings"

	"github.com/turtacn/SuburbROI-Intelligence/internal/domain/scenario"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
)

// BuildRequest sends only the active features that carry a finite value in
// vector.  An empty suburb is encoded as JSON null.
func BuildRequest(suburb string, vector scenario.FeatureVector, active scenario.ActiveSet) *client.PredictRequest {
	values := make(map[string]float64, active.Len())
	for _, f := range active.Features() {
		v, ok := vector[f]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values[f] = v
	}
	return &client.PredictRequest{
		SuburbName:    suburbName(suburb),
		FeatureValues: values,
	}
}

// BuildOverrideRequest sends override as given.  An empty override asks the
// service to use the suburb's own feature values.  Non-finite entries are
// dropped because JSON cannot carry them.
func BuildOverrideRequest(suburb string, override map[string]float64) *client.PredictRequest {
	values := make(map[string]float64, len(override))
	for f, v := range override {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values[f] = v
	}
	return &client.PredictRequest{
		SuburbName:    suburbName(suburb),
		FeatureValues: values,
	}
}

func suburbName(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
