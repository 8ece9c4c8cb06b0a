package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/SuburbROI-Intelligence/internal/application/notice"
	"github.com/turtacn/SuburbROI-Intelligence/internal/application/prediction"
	"github.com/turtacn/SuburbROI-Intelligence/internal/domain/scenario"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// features / guidance / presets
// ---------------------------------------------------------------------------

type featureTable []scenario.FeatureMeta

func (t featureTable) TableHeaders() []string {
	return []string{"Feature", "Min", "Median", "Max"}
}

func (t featureTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, f := range t {
		rows = append(rows, []string{f.Feature, formatNumber(f.Min), formatNumber(f.Median), formatNumber(f.Max)})
	}
	return rows
}

func newFeaturesCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "features",
		Short: "List model features with their observed ranges",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd, refresh)
			if err != nil {
				return err
			}
			return PrintResult(cmd, featureTable(snap.Features()))
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the metadata cache")
	return cmd
}

type guidanceTable []scenario.GuidanceRange

func (t guidanceTable) TableHeaders() []string {
	return []string{"Input", "Min", "Median", "Max"}
}

func (t guidanceTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, g := range t {
		rows = append(rows, []string{g.Key, formatNumber(g.Min), formatNumber(g.Median), formatNumber(g.Max)})
	}
	return rows
}

func newGuidanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guidance",
		Short: "Show the normal range of each scenario input",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd, false)
			if err != nil {
				return err
			}
			guidance := snap.GuidanceMap()
			keys := make([]string, 0, len(guidance))
			for k := range guidance {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			t := make(guidanceTable, 0, len(keys))
			for _, k := range keys {
				t = append(t, guidance[k])
			}
			return PrintResult(cmd, t)
		},
	}
	return cmd
}

type presetTable []scenario.Preset

func (t presetTable) TableHeaders() []string {
	return []string{"Preset", "Description", "Overrides"}
}

func (t presetTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, p := range t {
		keys := make([]string, 0, len(p.Overrides))
		for k := range p.Overrides {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+formatNumber(p.Overrides[k]))
		}
		rows = append(rows, []string{p.Name, p.Description, strings.Join(pairs, " ")})
	}
	return rows
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in scenario presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, presetTable(scenario.Presets()))
		},
	}
}

// loadSnapshot makes sure the registry holds feature metadata.
func loadSnapshot(cmd *cobra.Command, refresh bool) (*scenario.Snapshot, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}
	ctx, cancel := cliCtx.withTimeout(cmd)
	defer cancel()

	if refresh {
		_, err = cliCtx.Catalog.Refresh(ctx)
	} else {
		_, err = cliCtx.Catalog.Load(ctx)
	}
	if err != nil {
		return nil, err
	}
	return cliCtx.Registry.Ready()
}

// ---------------------------------------------------------------------------
// engineer
// ---------------------------------------------------------------------------

// scenarioFlags binds the inputs shared by engineer and predict.
type scenarioFlags struct {
	inputs map[string]string
	preset string
	edits  map[string]string
}

func (f *scenarioFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringToStringVarP(&f.inputs, "input", "i", nil,
		"scenario input key=value, e.g. monthly_mortgage=2500 (see `roi guidance`)")
	fs.StringVar(&f.preset, "preset", "", "apply a preset after engineering (see `roi presets`)")
	fs.StringToStringVar(&f.edits, "set", nil, "override a model feature, e.g. Senior_Share=0.2")
}

// build runs engineering, preset and edits in that order.
func (f *scenarioFlags) build(cmd *cobra.Command, cliCtx *CLIContext, snap *scenario.Snapshot) scenario.Result {
	raw := scenario.RawInputs{}
	for k, v := range f.inputs {
		raw[strings.TrimSpace(k)] = v
	}
	res := scenario.EngineerDetailed(raw, snap)
	prometheus.RecordEngineerRun(cliCtx.Metrics, "cli")

	if f.preset != "" {
		_, known := scenario.LookupPreset(f.preset)
		prometheus.RecordPresetApplication(cliCtx.Metrics, f.preset, known)
		if !known {
			PrintNotice(cmd, notice.KindInfo, fmt.Sprintf("unknown preset %q ignored; available: %s",
				f.preset, strings.Join(scenario.PresetNames(), ", ")))
		}
		res.Vector = scenario.ApplyPreset(f.preset, res.Vector, snap)
	}
	if len(f.edits) > 0 {
		res.Vector = scenario.ParseEdits(f.edits, res.Vector, snap)
	}
	return res
}

// vectorView renders a feature vector against the registry ranges.
type vectorView struct {
	Preset     string                 `json:"preset,omitempty"`
	Vector     scenario.FeatureVector `json:"feature_values"`
	Derivation scenario.Derivation    `json:"derivation"`

	snap *scenario.Snapshot
}

func (v vectorView) SummaryLines() [][2]string {
	d := v.Derivation
	return [][2]string{
		{"Monthly mortgage", formatMoney(d.MonthlyMortgage)},
		{"Mortgage burden", formatPercent(d.BurdenPct)},
		{"Weekly household income", formatMoney(d.WeeklyHouseholdIncome)},
		{"Weekly personal income", formatMoney(d.WeeklyPersonalIncome)},
		{"Weekly rent", formatMoney(d.WeeklyRent)},
		{"Rent to income", formatNumber(d.RentToIncome)},
	}
}

func (v vectorView) TableHeaders() []string {
	return []string{"Feature", "Value", "Median", "Min", "Max"}
}

func (v vectorView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Vector))
	for _, meta := range v.snap.Features() {
		val, ok := v.Vector[meta.Feature]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			meta.Feature,
			formatNumber(val),
			formatNumber(meta.Median),
			formatNumber(meta.Min),
			formatNumber(meta.Max),
		})
	}
	return rows
}

func newEngineerCmd() *cobra.Command {
	var flags scenarioFlags
	cmd := &cobra.Command{
		Use:   "engineer",
		Short: "Derive model features from scenario inputs without predicting",
		Example: `  roi engineer -i monthly_mortgage=2600 -i weekly_rent=620 -i seifa_score=1040
  roi engineer --preset growth --set Senior_Share=0.12 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			snap, err := loadSnapshot(cmd, false)
			if err != nil {
				return err
			}
			res := flags.build(cmd, cliCtx, snap)
			return PrintResult(cmd, vectorView{
				Preset:     flags.preset,
				Vector:     res.Vector,
				Derivation: res.Derivation,
				snap:       snap,
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

// ---------------------------------------------------------------------------
// predict
// ---------------------------------------------------------------------------

// predictionView renders the normalized prediction.
type predictionView struct {
	*prediction.RunResult
}

func (v predictionView) SummaryLines() [][2]string {
	vm := v.ViewModel
	suburb := vm.SuburbName
	if suburb == "" {
		suburb = "(dataset baseline)"
	}
	return [][2]string{
		{"Suburb", suburb},
		{"Predicted ROI", formatPercent(vm.PredictedROIPercent)},
		{"Percentile", formatNumber(vm.Percentile)},
		{"Signal", colorSignal(vm.Signal)},
		{"Features sent", fmt.Sprintf("%d", len(v.Request.FeatureValues))},
	}
}

func (v predictionView) TableHeaders() []string {
	return []string{"Factor", "Effect", "Value", "Median", "Impact"}
}

func (v predictionView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.ViewModel.TopFactors))
	for _, f := range v.ViewModel.TopFactors {
		rows = append(rows, []string{
			f.Feature,
			colorEffect(f.Effect),
			optionalNumber(f.Value),
			optionalNumber(f.Median),
			optionalNumber(f.ImpactScore),
		})
	}
	return rows
}

func optionalNumber(p *float64) string {
	if p == nil {
		return "-"
	}
	return formatNumber(*p)
}

func colorSignal(s prediction.Signal) string {
	switch s {
	case prediction.SignalStrong:
		return color.GreenString(string(s))
	case prediction.SignalCautious:
		return color.RedString(string(s))
	default:
		return color.YellowString(string(s))
	}
}

func colorEffect(e prediction.Effect) string {
	if e == prediction.EffectPositive {
		return color.GreenString("+ " + string(e))
	}
	return color.RedString("- " + string(e))
}

func newPredictCmd() *cobra.Command {
	var (
		flags          scenarioFlags
		suburb         string
		active         []string
		suburbDefaults bool
		comparables    int
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict ROI for a scenario and list comparable suburbs",
		Example: `  roi predict --suburb Parramatta -i monthly_mortgage=2800 --preset balanced
  roi predict --suburb Parramatta --use-suburb-defaults
  roi predict -i weekly_rent=550 --active IRSD_Score,Rent_to_Income_Ratio`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("comparables") {
				comparables = cliCtx.Config.Scenario.NearestTopN
			}

			input := &prediction.RunInput{Suburb: suburb, ComparablesTopN: comparables}
			if suburbDefaults {
				input.Override = map[string]float64{}
			} else {
				snap, err := loadSnapshot(cmd, false)
				if err != nil {
					return err
				}
				input.Vector = flags.build(cmd, cliCtx, snap).Vector
				input.Active = activeSet(active, snap, cliCtx.Config.Scenario.DefaultActiveFeatures)
				if input.Active.Len() == 0 {
					return errors.InvalidParam("no known features selected with --active")
				}
			}

			ctx, cancel := cliCtx.withTimeout(cmd)
			defer cancel()
			result, err := cliCtx.Prediction.Run(ctx, input)
			if err != nil {
				PrintNotice(cmd, notice.KindError, "prediction failed")
				return err
			}
			PrintNotice(cmd, notice.KindSuccess, "prediction complete")

			if cliCtx.OutputFormat == OutputJSON {
				return PrintResult(cmd, result)
			}
			if err := PrintResult(cmd, predictionView{result}); err != nil {
				return err
			}
			if len(result.Comparables) > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), color.New(color.Bold).Sprint("Comparable suburbs"))
				return PrintResult(cmd, comparableList{Suburbs: result.Comparables})
			}
			return nil
		},
	}
	flags.bind(cmd)
	fs := cmd.Flags()
	fs.StringVar(&suburb, "suburb", "", "baseline suburb (default: dataset baseline)")
	fs.StringSliceVar(&active, "active", nil, "features to send (default: the first N registry features)")
	fs.BoolVar(&suburbDefaults, "use-suburb-defaults", false, "send no feature values and predict with the suburb's own data")
	fs.IntVar(&comparables, "comparables", 0, "comparable suburbs to fetch, 0 disables (default from config)")
	return cmd
}

// activeSet resolves --active against the registry, or falls back to the
// first n registry features.
func activeSet(features []string, snap *scenario.Snapshot, n int) scenario.ActiveSet {
	if len(features) == 0 {
		return scenario.DefaultActiveSet(snap, n)
	}
	set := scenario.NewActiveSet()
	for _, f := range features {
		set = set.Add(strings.TrimSpace(f), snap)
	}
	return set
}
