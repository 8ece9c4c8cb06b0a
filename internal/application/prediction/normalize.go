package prediction

import (
	"math"
	"strings"

	"github.com/turtacn/SuburbROI-Intelligence/internal/domain/scenario"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// Signal is the investment recommendation attached to a prediction.
type Signal string

const (
	SignalStrong   Signal = "Strong"
	SignalModerate Signal = "Moderate"
	SignalCautious Signal = "Cautious"
)

// Percentile thresholds for SignalForPercentile.
const (
	StrongPercentile   = 80.0
	CautiousPercentile = 40.0
)

// SignalForPercentile maps a percentile to a Signal.
func SignalForPercentile(p float64) Signal {
	switch {
	case p >= StrongPercentile:
		return SignalStrong
	case p <= CautiousPercentile:
		return SignalCautious
	default:
		return SignalModerate
	}
}

// Effect is the direction in which a factor moves the prediction.
type Effect string

const (
	EffectPositive Effect = "positive"
	EffectNegative Effect = "negative"
)

// Factor is one tagged driver of a prediction.
type Factor struct {
	Feature     string   `json:"feature"`
	Effect      Effect   `json:"effect"`
	Value       *float64 `json:"value,omitempty"`
	Median      *float64 `json:"median,omitempty"`
	ImpactScore *float64 `json:"impact_score,omitempty"`
}

// ViewModel is the normalized prediction.  A new one is built per call.
type ViewModel struct {
	SuburbName          string                 `json:"suburb_name,omitempty"`
	PredictedROIScore   float64                `json:"predicted_roi_score"`
	PredictedROIPercent float64                `json:"predicted_roi_percent"`
	Percentile          float64                `json:"percentile"`
	Signal              Signal                 `json:"signal"`
	TopFactors          []Factor               `json:"top_factors"`
	InputFeatures       scenario.FeatureVector `json:"input_features,omitempty"`
}

// Normalize validates a raw prediction payload.  An in-band error becomes a
// PRD_001 failure; a payload without ROI or percentile becomes PRD_002.
func Normalize(raw *client.PredictResponse) (*ViewModel, error) {
	if raw == nil {
		return nil, errors.New(errors.ErrCodePredictionMalformed, "empty prediction response")
	}
	if msg := strings.TrimSpace(raw.Error); msg != "" {
		return nil, errors.New(errors.ErrCodePredictionFailed, "prediction failed").WithDetail(msg)
	}

	score, hasScore := finite(raw.PredictedROIScore)
	percent, hasPercent := finite(raw.PredictedROIPercent)
	switch {
	case !hasScore && !hasPercent:
		return nil, errors.New(errors.ErrCodePredictionMalformed, "prediction response has no ROI")
	case !hasPercent:
		percent = math.Round(score*100*100) / 100
	case !hasScore:
		score = percent / 100
	}

	percentile, ok := finite(raw.Percentile)
	if !ok {
		return nil, errors.New(errors.ErrCodePredictionMalformed, "prediction response has no percentile")
	}

	signal := Signal(strings.TrimSpace(raw.InvestmentSignal))
	if signal == "" {
		signal = SignalForPercentile(percentile)
	}

	vm := &ViewModel{
		PredictedROIScore:   score,
		PredictedROIPercent: percent,
		Percentile:          percentile,
		Signal:              signal,
		TopFactors:          normalizeFactors(raw.TopFactors),
	}
	if raw.SuburbName != nil {
		vm.SuburbName = *raw.SuburbName
	}
	if len(raw.InputFeatures) > 0 {
		vm.InputFeatures = make(scenario.FeatureVector, len(raw.InputFeatures))
		for k, v := range raw.InputFeatures {
			if isFinite(v) {
				vm.InputFeatures[k] = v
			}
		}
	}
	return vm, nil
}

// normalizeFactors keeps server order.  The sign of impact_score decides the
// effect; the effect string is used only when no score is present.  Factors
// with neither are dropped.
func normalizeFactors(in []client.Factor) []Factor {
	out := make([]Factor, 0, len(in))
	for _, f := range in {
		name := strings.TrimSpace(f.Feature)
		if name == "" {
			continue
		}
		var effect Effect
		if score, ok := finite(f.ImpactScore); ok {
			effect = EffectNegative
			if score >= 0 {
				effect = EffectPositive
			}
		} else {
			switch Effect(strings.ToLower(strings.TrimSpace(f.Effect))) {
			case EffectPositive:
				effect = EffectPositive
			case EffectNegative:
				effect = EffectNegative
			default:
				continue
			}
		}
		out = append(out, Factor{
			Feature:     name,
			Effect:      effect,
			Value:       finitePtr(f.Value),
			Median:      finitePtr(f.Median),
			ImpactScore: finitePtr(f.ImpactScore),
		})
	}
	return out
}

// MergeInputFeatures overlays the server-confirmed feature values on a copy
// of current.  Server values win.
func MergeInputFeatures(current scenario.FeatureVector, vm *ViewModel) scenario.FeatureVector {
	merged := current.Clone()
	if vm == nil {
		return merged
	}
	for k, v := range vm.InputFeatures {
		if isFinite(v) {
			merged[k] = v
		}
	}
	return merged
}

// ComparableROI returns the ROI fraction used to look up comparables.
func (vm *ViewModel) ComparableROI() float64 {
	if vm.PredictedROIScore != 0 || vm.PredictedROIPercent == 0 {
		return vm.PredictedROIScore
	}
	return vm.PredictedROIPercent / 100
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func finite(p *float64) (float64, bool) {
	if p == nil || !isFinite(*p) {
		return 0, false
	}
	return *p, true
}

func finitePtr(p *float64) *float64 {
	v, ok := finite(p)
	if !ok {
		return nil
	}
	return &v
}
