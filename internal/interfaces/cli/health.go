package cli

import (
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
)

// healthReport combines service health with model information.
type healthReport struct {
	Health *client.HealthStatus `json:"health"`
	Model  *client.ModelInfo    `json:"model,omitempty"`
}

func (r healthReport) SummaryLines() [][2]string {
	status := color.GreenString(r.Health.Status)
	if !r.Health.ModelLoaded {
		status = color.YellowString(r.Health.Status)
	}
	lines := [][2]string{
		{"Status", status},
		{"Suburbs loaded", strconv.Itoa(r.Health.SuburbsLoaded)},
		{"Model loaded", strconv.FormatBool(r.Health.ModelLoaded)},
		{"Model features", strconv.Itoa(r.Health.ModelFeatures)},
	}
	if r.Model != nil && r.Model.Target != nil {
		lines = append(lines, [2]string{"Model target", *r.Model.Target})
	}
	return lines
}

func (r healthReport) TableHeaders() []string { return []string{"Metric", "Value"} }

func (r healthReport) TableRows() [][]string {
	if r.Model == nil {
		return nil
	}
	names := make([]string, 0, len(r.Model.Metrics))
	for k := range r.Model.Metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, k := range names {
		rows = append(rows, []string{k, formatNumber(r.Model.Metrics[k])})
	}
	return rows
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check ROI service and model readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd)
			defer cancel()

			meta := cliCtx.Client.Metadata()
			health, err := meta.Health(ctx)
			if err != nil {
				return err
			}
			report := healthReport{Health: health}
			if health.ModelLoaded {
				if info, err := meta.ModelInfo(ctx); err == nil {
					report.Model = info
				} else {
					cliCtx.Logger.Warn("model info unavailable")
				}
			}
			return PrintResult(cmd, report)
		},
	}
}
