// Package scenario holds the client-side scenario model: the feature metadata
// registry, the derived feature calculator, scenario presets and the active
// feature set.  Everything here is pure and synchronous; the only shared state
// is the Registry snapshot pointer.
package scenario

import (
	"math"
	"sort"
)

// Model feature names as published by the prediction service.
const (
	FeatureIRSD              = "IRSD_Score"
	FeatureIRSAD             = "IRSAD_Score"
	FeatureIER               = "IER_Score"
	FeatureIEO               = "IEO_Score"
	FeatureMedianAge         = "Median_age_persons"
	FeaturePersonalIncome    = "Median_tot_prsnl_inc_weekly"
	FeatureHouseholdIncome   = "Median_tot_hhd_inc_weekly"
	FeatureHouseholdSize     = "Average_household_size"
	FeaturePopulation        = "Tot_P_P"
	FeatureWorkingAgeShare   = "Working_Age_Share"
	FeatureSeniorShare       = "Senior_Share"
	FeatureDiversityShare    = "Diversity_Share"
	FeatureRentToIncomeRatio = "Rent_to_Income_Ratio"
)

// SEIFAFeatures are the four sub-indices seeded by the single SEIFA input.
var SEIFAFeatures = []string{FeatureIRSD, FeatureIRSAD, FeatureIER, FeatureIEO}

// Human-facing input keys.  Guidance ranges use the same names.
const (
	InputMonthlyMortgage   = "monthly_mortgage"
	InputMortgageBurdenPct = "mortgage_burden_pct"
	InputWeeklyRent        = "weekly_rent"
	InputSEIFAScore        = "seifa_score"
	InputMedianAge         = "median_age"
	InputPopulation        = "population"
	InputHouseholdSize     = "household_size"
	InputWorkingAgePct     = "working_age_pct"
	InputSeniorPct         = "senior_pct"
	InputDiversityPct      = "diversity_pct"
)

// InputKeys lists every recognised raw input key in form order.
var InputKeys = []string{
	InputMonthlyMortgage,
	InputMortgageBurdenPct,
	InputWeeklyRent,
	InputSEIFAScore,
	InputMedianAge,
	InputPopulation,
	InputHouseholdSize,
	InputWorkingAgePct,
	InputSeniorPct,
	InputDiversityPct,
}

// FeatureMeta describes the observed range of one model input feature.
type FeatureMeta struct {
	Feature string  `json:"feature"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Median  float64 `json:"median"`
	Mean    float64 `json:"mean,omitempty"`
}

// GuidanceRange is the normal range hint for a human-facing input.
type GuidanceRange struct {
	Key    string  `json:"key"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// RawInputs maps input keys to the free text typed by the analyst.
type RawInputs map[string]string

// FeatureVector maps model feature names to finite values.
type FeatureVector map[string]float64

// Clone returns an independent copy of v.  A nil vector clones to an empty one.
func (v FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Keys returns the feature names of v in lexical order.
func (v FeatureVector) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether v and other hold the same keys and values.
func (v FeatureVector) Equal(other FeatureVector) bool {
	if len(v) != len(other) {
		return false
	}
	for k, a := range v {
		b, ok := other[k]
		if !ok || a != b {
			return false
		}
	}
	return true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
