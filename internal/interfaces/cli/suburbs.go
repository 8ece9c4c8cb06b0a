package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/SuburbROI-Intelligence/internal/application/query"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// filterFlags binds the listing filter flags shared by suburbs and report-url.
type filterFlags struct {
	name     string
	minROI   float64
	maxPrice float64
	minSEIFA float64
	topN     int
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.name, "name", "", "suburb name substring")
	fs.Float64Var(&f.minROI, "min-roi", 0, "minimum ROI (4.5 or 0.045 both mean 4.5%)")
	fs.Float64Var(&f.maxPrice, "max-price", 0, "maximum median price")
	fs.Float64Var(&f.minSEIFA, "min-seifa", 0, "minimum SEIFA score")
	fs.IntVar(&f.topN, "top-n", 0, "rows to return (5-200, default from config)")
}

// criteria only carries the bounds the user actually set.
func (f *filterFlags) criteria(cmd *cobra.Command) query.FilterCriteria {
	c := query.FilterCriteria{Name: f.name, TopN: f.topN}
	if cmd.Flags().Changed("min-roi") {
		c.MinROI = query.Float(f.minROI)
	}
	if cmd.Flags().Changed("max-price") {
		c.MaxPrice = query.Float(f.maxPrice)
	}
	if cmd.Flags().Changed("min-seifa") {
		c.MinSEIFA = query.Float(f.minSEIFA)
	}
	return c
}

// suburbList renders the ranked listing.
type suburbList []client.Suburb

func (l suburbList) TableHeaders() []string {
	return []string{"#", "Suburb", "Price", "Rent", "ROI", "SEIFA"}
}

func (l suburbList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for i, s := range l {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			s.Name,
			formatMoney(s.Price),
			formatMoney(s.Rent),
			formatROI(s.ROI),
			formatNumber(s.SEIFAScore),
		})
	}
	return rows
}

func newSuburbsCmd() *cobra.Command {
	var filters filterFlags
	cmd := &cobra.Command{
		Use:   "suburbs",
		Short: "List suburbs ranked by ROI",
		Example: `  roi suburbs --min-roi 4.5 --max-price 900000
  roi suburbs --name park --top-n 50 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd)
			defer cancel()

			values := cliCtx.Listing.Build(filters.criteria(cmd))
			suburbs, err := cliCtx.Client.Suburbs().List(ctx, values)
			if err != nil {
				return err
			}
			return PrintResult(cmd, suburbList(suburbs))
		},
	}
	filters.bind(cmd)
	return cmd
}

// nameList renders suburb name search results.
type nameList []string

func (l nameList) TableHeaders() []string { return []string{"Suburb"} }

func (l nameList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, n := range l {
		rows = append(rows, []string{n})
	}
	return rows
}

func newNamesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "names [query]",
		Short: "Search suburb names",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd)
			defer cancel()

			var q string
			if len(args) == 1 {
				q = args[0]
			}
			names, err := cliCtx.Client.Suburbs().Names(ctx, q, limit)
			if err != nil {
				return err
			}
			if names == nil {
				names = []string{}
			}
			return PrintResult(cmd, nameList(names))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum names to return (1-1000)")
	return cmd
}

// opportunityReport renders the opportunities feed.
type opportunityReport struct {
	client.OpportunitiesResponse
}

func (r opportunityReport) SummaryLines() [][2]string {
	return [][2]string{
		{"Suburbs analyzed", strconv.Itoa(r.Summary.SuburbsAnalyzed)},
		{"Average ROI (top N)", formatPercent(r.Summary.AvgROIPercentTopN)},
		{"Median ROI (all)", formatPercent(r.Summary.MedianROIPercentAll)},
		{"Max ROI", formatPercent(r.Summary.MaxROIPercent)},
	}
}

func (r opportunityReport) TableHeaders() []string {
	return []string{"#", "Suburb", "ROI", "Price", "Rent", "SEIFA", "Insights"}
}

func (r opportunityReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Opportunities))
	for i, o := range r.Opportunities {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			o.Name,
			formatROI(o.ROI),
			formatMoney(o.Price),
			formatMoney(o.Rent),
			formatNumber(o.SEIFAScore),
			strings.Join(o.InsightTags, ", "),
		})
	}
	return rows
}

func newOpportunitiesCmd() *cobra.Command {
	var topN int
	cmd := &cobra.Command{
		Use:   "opportunities",
		Short: "Show the top ROI opportunities with insight tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd)
			defer cancel()

			resp, err := cliCtx.Client.Suburbs().Opportunities(ctx, cliCtx.Opportunities.Opportunities(topN))
			if err != nil {
				return err
			}
			return PrintResult(cmd, opportunityReport{*resp})
		},
	}
	cmd.Flags().IntVar(&topN, "top-n", 0, "opportunities to return (5-200, default from config)")
	return cmd
}

// reportLink is the report-url result.
type reportLink struct {
	Format string `json:"format"`
	URL    string `json:"url"`
}

func (r reportLink) String() string { return r.URL }

func newReportURLCmd() *cobra.Command {
	var (
		filters filterFlags
		format  string
	)
	cmd := &cobra.Command{
		Use:   "report-url",
		Short: "Print the CSV or PDF report link for the current filters",
		Long: "report-url builds the export link from the same filters as `roi suburbs`,\n" +
			"so the report always matches the listing.  Nothing is downloaded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			f, err := client.ParseReportFormat(format)
			if err != nil {
				return err
			}
			link, err := cliCtx.Client.Suburbs().ReportURL(f, cliCtx.Listing.Build(filters.criteria(cmd)))
			if err != nil {
				return err
			}
			return PrintResult(cmd, reportLink{Format: string(f), URL: link})
		},
	}
	filters.bind(cmd)
	cmd.Flags().StringVar(&format, "format", string(client.ReportCSV), "report format: csv|pdf")
	return cmd
}

// comparableList renders nearest-ROI suburbs.
type comparableList struct {
	TargetROI float64             `json:"target_roi"`
	Suburbs   []client.Comparable `json:"suburbs"`
}

func (l comparableList) TableHeaders() []string {
	return []string{"Suburb", "ROI", "Diff", "Price", "Rent"}
}

func (l comparableList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Suburbs))
	for _, s := range l.Suburbs {
		rows = append(rows, []string{
			s.Name,
			formatROI(s.ROI),
			formatROI(s.ROIDiff),
			formatMoney(s.Price),
			formatMoney(s.Rent),
		})
	}
	return rows
}

func newNearestCmd() *cobra.Command {
	var (
		roi  float64
		topN int
	)
	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "Find suburbs whose ROI is closest to a target",
		Example: `  roi nearest --roi 0.052
  roi nearest --roi 0.06 --top-n 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("roi") {
				return errors.InvalidParam("--roi is required")
			}
			if topN <= 0 {
				topN = cliCtx.Config.Scenario.NearestTopN
			}
			ctx, cancel := cliCtx.withTimeout(cmd)
			defer cancel()

			resp, err := cliCtx.Prediction.Comparables(ctx, roi, topN)
			if err != nil {
				return err
			}
			return PrintResult(cmd, comparableList{TargetROI: resp.TargetROI, Suburbs: resp.Suburbs})
		},
	}
	cmd.Flags().Float64Var(&roi, "roi", 0, "target ROI as a fraction (0.05 = 5%)")
	cmd.Flags().IntVar(&topN, "top-n", 0, "suburbs to return (default from config)")
	return cmd
}
