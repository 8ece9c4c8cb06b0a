package scenario

import "testing"

func allFeatureMeta() []FeatureMeta {
	return []FeatureMeta{
		{Feature: FeatureIRSD, Min: 800, Max: 1200, Median: 1000},
		{Feature: FeatureIRSAD, Min: 800, Max: 1200, Median: 990},
		{Feature: FeatureIER, Min: 800, Max: 1200, Median: 1005},
		{Feature: FeatureIEO, Min: 800, Max: 1200, Median: 995},
		{Feature: FeatureMedianAge, Min: 20, Max: 60, Median: 38},
		{Feature: FeaturePersonalIncome, Min: 300, Max: 2000, Median: 850},
		{Feature: FeatureHouseholdIncome, Min: 600, Max: 4000, Median: 1700},
		{Feature: FeatureHouseholdSize, Min: 1.5, Max: 4, Median: 2.6},
		{Feature: FeaturePopulation, Min: 100, Max: 50000, Median: 8000},
		{Feature: FeatureWorkingAgeShare, Min: 0.2, Max: 0.6, Median: 0.35},
		{Feature: FeatureSeniorShare, Min: 0.05, Max: 0.4, Median: 0.17},
		{Feature: FeatureDiversityShare, Min: 0.05, Max: 0.7, Median: 0.3},
		{Feature: FeatureRentToIncomeRatio, Min: 0.1, Max: 0.5, Median: 0.21},
	}
}

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	return NewSnapshot(allFeatureMeta(), map[string]GuidanceRange{
		InputMonthlyMortgage: {Min: 800, Max: 5000, Median: 2200},
		InputSEIFAScore:      {Min: 800, Max: 1200, Median: 1010},
	})
}
