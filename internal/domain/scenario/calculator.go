package scenario

import "math"

// Calculator constants.
const (
	// DefaultMonthlyMortgage is used when neither the input nor the guidance
	// provides a mortgage figure.
	DefaultMonthlyMortgage = 2000.0

	// MaxMonthlyMortgage caps typed mortgages so derived incomes stay finite.
	MaxMonthlyMortgage = 1e7

	// DefaultBurdenPct applies whenever the burden input is blank or bad.
	// The guidance median for mortgage_burden_pct is not a fallback here.
	DefaultBurdenPct = 30.0
	MinBurdenPct     = 5.0
	MaxBurdenPct     = 80.0

	// PersonalIncomeRatio converts weekly household income to weekly
	// personal income.
	PersonalIncomeRatio = 0.56

	// DefaultRentToIncome seeds weekly rent when the registry has no
	// Rent_to_Income_Ratio median.
	DefaultRentToIncome = 0.25
	MaxRentToIncome     = 1.5

	PopulationFloor    = 1.0
	HouseholdSizeFloor = 0.5

	weeksPerYear  = 52.0
	monthsPerYear = 12.0
)

// Derivation records the intermediate quantities of one Engineer run.
type Derivation struct {
	MonthlyMortgage       float64 `json:"monthly_mortgage"`
	BurdenPct             float64 `json:"mortgage_burden_pct"`
	WeeklyHouseholdIncome float64 `json:"weekly_household_income"`
	WeeklyPersonalIncome  float64 `json:"weekly_personal_income"`
	WeeklyRent            float64 `json:"weekly_rent"`
	RentToIncome          float64 `json:"rent_to_income_ratio"`
}

// Result is the output of EngineerDetailed.
type Result struct {
	Vector     FeatureVector `json:"feature_values"`
	Derivation Derivation    `json:"derivation"`
}

// Engineer maps raw analyst inputs onto a complete feature vector.  The result
// holds exactly the snapshot's features; unknown raw keys are ignored and bad
// text falls back silently.  It never fails.
func Engineer(raw RawInputs, snap *Snapshot) FeatureVector {
	return EngineerDetailed(raw, snap).Vector
}

// WeeklyHouseholdIncome infers weekly household income from a monthly
// mortgage repayment and the share of income it consumes.  The burden is
// clamped to [MinBurdenPct, MaxBurdenPct] and the mortgage to
// [1, MaxMonthlyMortgage].
func WeeklyHouseholdIncome(monthlyMortgage, burdenPct float64) float64 {
	mortgage := clamp(monthlyMortgage, 1, MaxMonthlyMortgage)
	share := clamp(burdenPct, MinBurdenPct, MaxBurdenPct) / 100
	return mortgage / share * monthsPerYear / weeksPerYear
}

// RentToIncome is weekly rent over weekly household income, capped at
// MaxRentToIncome.  The income divisor is floored at 1.
func RentToIncome(weeklyRent, weeklyHouseholdIncome float64) float64 {
	ratio := math.Max(0, weeklyRent) / math.Max(1, weeklyHouseholdIncome)
	return math.Min(MaxRentToIncome, ratio)
}

// EngineerDetailed is Engineer that also reports the derived quantities.
func EngineerDetailed(raw RawInputs, snap *Snapshot) Result {
	if snap == nil {
		snap = NewSnapshot(nil, nil)
	}
	vec := snap.DefaultVector()
	e := engineering{raw: raw, snap: snap, vec: vec}

	mortgageFallback := DefaultMonthlyMortgage
	if g, ok := snap.Guidance(InputMonthlyMortgage); ok {
		mortgageFallback = g.Median
	}
	mortgage := clamp(ParseWithFallback(raw[InputMonthlyMortgage], mortgageFallback), 1, MaxMonthlyMortgage)
	burden := clamp(ParseWithFallback(raw[InputMortgageBurdenPct], DefaultBurdenPct), MinBurdenPct, MaxBurdenPct)
	household := WeeklyHouseholdIncome(mortgage, burden)
	personal := household * PersonalIncomeRatio

	e.set(FeatureHouseholdIncome, household)
	e.set(FeaturePersonalIncome, personal)

	if seifa, ok := e.resolve(InputSEIFAScore); ok {
		for _, f := range SEIFAFeatures {
			e.set(f, seifa)
		}
	}
	if age, ok := e.resolve(InputMedianAge); ok {
		e.set(FeatureMedianAge, age)
	}
	if pop, ok := e.resolve(InputPopulation); ok {
		e.set(FeaturePopulation, math.Max(PopulationFloor, pop))
	}
	if size, ok := e.resolve(InputHouseholdSize); ok {
		e.set(FeatureHouseholdSize, math.Max(HouseholdSizeFloor, size))
	}
	e.share(InputWorkingAgePct, FeatureWorkingAgeShare)
	e.share(InputSeniorPct, FeatureSeniorShare)
	e.share(InputDiversityPct, FeatureDiversityShare)

	rent, ok := e.resolve(InputWeeklyRent)
	if !ok {
		ratio := DefaultRentToIncome
		if m, known := snap.Lookup(FeatureRentToIncomeRatio); known {
			ratio = m.Median
		}
		rent = ratio * household
	}
	rent = math.Max(0, rent)
	ratio := RentToIncome(rent, household)
	e.set(FeatureRentToIncomeRatio, ratio)

	return Result{
		Vector: vec,
		Derivation: Derivation{
			MonthlyMortgage:       mortgage,
			BurdenPct:             burden,
			WeeklyHouseholdIncome: household,
			WeeklyPersonalIncome:  personal,
			WeeklyRent:            rent,
			RentToIncome:          ratio,
		},
	}
}

type engineering struct {
	raw  RawInputs
	snap *Snapshot
	vec  FeatureVector
}

// resolve parses a raw input, falling back to the guidance median.  ok is
// false when neither is available, leaving the feature at its default.
func (e engineering) resolve(key string) (float64, bool) {
	if v, ok := parseNumber(e.raw[key]); ok {
		return v, true
	}
	if g, ok := e.snap.Guidance(key); ok {
		return g.Median, true
	}
	return 0, false
}

// share converts a percentage input into a [0, 1] share feature.
func (e engineering) share(key, feature string) {
	if pct, ok := e.resolve(key); ok {
		e.set(feature, clamp(pct, 0, 100)/100)
	}
}

// set writes value only for registry features and only when it is finite.
func (e engineering) set(feature string, value float64) {
	if !e.snap.Known(feature) || !isFinite(value) {
		return
	}
	e.vec[feature] = value
}
