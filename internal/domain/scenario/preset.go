package scenario

import (
	"sort"
	"strings"
)

// Preset is a named bundle of feature overrides representing an investment
// archetype.
type Preset struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Overrides   map[string]float64 `json:"overrides"`
}

// Built-in preset names.
const (
	PresetBalanced  = "balanced"
	PresetGrowth    = "growth"
	PresetDefensive = "defensive"
)

var builtinPresets = map[string]Preset{
	PresetBalanced: {
		Name:        PresetBalanced,
		Description: "Moderate rent pressure with a mid-range income base",
		Overrides: map[string]float64{
			FeatureRentToIncomeRatio: 0.22,
			FeatureWorkingAgeShare:   0.38,
			FeatureIRSD:              1050,
			FeatureHouseholdIncome:   2500,
		},
	},
	PresetGrowth: {
		Name:        PresetGrowth,
		Description: "Young, diverse workforce with strong advantage scores",
		Overrides: map[string]float64{
			FeatureWorkingAgeShare: 0.45,
			FeatureDiversityShare:  0.4,
			FeatureIRSAD:           1120,
			FeatureHouseholdIncome: 3200,
		},
	},
	PresetDefensive: {
		Name:        PresetDefensive,
		Description: "Established households with low rent stress",
		Overrides: map[string]float64{
			FeatureSeniorShare:       0.24,
			FeatureIRSD:              1100,
			FeatureRentToIncomeRatio: 0.19,
			FeatureHouseholdSize:     2.8,
		},
	},
}

var presetOrder = []string{PresetBalanced, PresetGrowth, PresetDefensive}

func copyPreset(p Preset) Preset {
	overrides := make(map[string]float64, len(p.Overrides))
	for k, v := range p.Overrides {
		overrides[k] = v
	}
	p.Overrides = overrides
	return p
}

// Presets lists the built-in presets.
func Presets() []Preset {
	out := make([]Preset, 0, len(presetOrder))
	for _, name := range presetOrder {
		out = append(out, copyPreset(builtinPresets[name]))
	}
	return out
}

// PresetNames lists the built-in preset names.
func PresetNames() []string {
	return append([]string(nil), presetOrder...)
}

// LookupPreset finds a preset by case-insensitive name.
func LookupPreset(name string) (Preset, bool) {
	p, ok := builtinPresets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, false
	}
	return copyPreset(p), true
}

// ApplyPreset overlays the named preset onto a copy of current.  Overrides
// for features the snapshot does not know are skipped, and an unknown preset
// returns an unchanged copy.  current is never modified.
func ApplyPreset(name string, current FeatureVector, snap *Snapshot) FeatureVector {
	out := current.Clone()
	p, ok := LookupPreset(name)
	if !ok || snap == nil {
		return out
	}
	features := make([]string, 0, len(p.Overrides))
	for f := range p.Overrides {
		features = append(features, f)
	}
	sort.Strings(features)
	for _, f := range features {
		if snap.Known(f) {
			out[f] = p.Overrides[f]
		}
	}
	return out
}
