package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/SuburbROI-Intelligence/internal/app"
	"github.com/turtacn/SuburbROI-Intelligence/internal/application/notice"
	"github.com/turtacn/SuburbROI-Intelligence/internal/config"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats accepted by --output.
const (
	OutputText  = "text"
	OutputJSON  = "json"
	OutputTable = "table"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
	ServerAddr   string

	cli *CLIContext
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	*app.Components
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
}

// NewRootCommand creates the roi command with all global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "roi",
		Short: "Suburb ROI scenario toolkit",
		Long: "roi queries the suburb ROI service: ranked listings, opportunities,\n" +
			"report links, feature metadata, scenario engineering and predictions.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			opts.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./roi.yaml, then ROI_* environment)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputText, "output format (text, json, table)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "global operation timeout")
	pf.StringVar(&opts.ServerAddr, "server", "", "ROI API base URL (overrides upstream.base_url)")

	cmd.AddCommand(
		newSuburbsCmd(),
		newNamesCmd(),
		newOpportunitiesCmd(),
		newReportURLCmd(),
		newNearestCmd(),
		newFeaturesCmd(),
		newGuidanceCmd(),
		newPresetsCmd(),
		newEngineerCmd(),
		newPredictCmd(),
		newHealthCmd(),
		newVersionCmd(),
	)
	return cmd, opts
}

// persistentPreRun initializes config, logger and components, then stores
// the CLIContext on the command.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	switch strings.ToLower(opts.OutputFormat) {
	case OutputText, OutputJSON, OutputTable:
	default:
		return errors.InvalidParam(fmt.Sprintf("unsupported output format %q", opts.OutputFormat))
	}
	if opts.NoColor {
		color.NoColor = true
	}

	cfg, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	components, err := app.Build(cmd.Context(), cfg, logger, app.WithEventSource("roi-cli"))
	if err != nil {
		return fmt.Errorf("component initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Components:   components,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Verbose:      opts.Verbose,
		NoColor:      opts.NoColor,
		Timeout:      opts.Timeout,
	}
	opts.cli = cliCtx

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

func (o *RootOptions) close() {
	if o.cli != nil {
		o.cli.Close()
		o.cli = nil
	}
}

// initConfig loads configuration with priority: flags > file > env > defaults.
func initConfig(opts *RootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	path := opts.ConfigPath
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}

	if opts.ServerAddr != "" {
		cfg.Upstream.BaseURL = opts.ServerAddr
	}
	if opts.Timeout > 0 {
		cfg.Upstream.Timeout = opts.Timeout
	}
	return cfg, cfg.Validate()
}

func findConfigFile() string {
	searchPaths := []string{"./roi.yaml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(homeDir, ".roi", "config.yaml"))
	}
	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// initLogger creates a logger configured for CLI usage (output to stderr).
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := logging.LevelWarn
	switch strings.ToLower(opts.LogLevel) {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
		level = strings.ToLower(opts.LogLevel)
	}
	if opts.Verbose {
		level = logging.LevelDebug
	}

	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}

	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}

	return cliCtx, nil
}

// withTimeout derives the per-command context.
func (c *CLIContext) withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), c.Timeout)
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd, opts := newRootCommand()
	defer opts.close()

	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

// tabular is implemented by results that render as a table.
type tabular interface {
	TableHeaders() []string
	TableRows() [][]string
}

// summarized results print key/value lines ahead of their table.
type summarized interface {
	SummaryLines() [][2]string
}

// PrintResult outputs data in the format specified by CLIContext.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := OutputJSON
	if cliCtx, err := GetCLIContext(cmd); err == nil {
		format = cliCtx.OutputFormat
	}

	if format == OutputJSON {
		return printJSON(cmd.OutOrStdout(), data)
	}
	return printText(cmd.OutOrStdout(), data)
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(w io.Writer, data interface{}) error {
	printed := false
	if s, ok := data.(summarized); ok {
		for _, kv := range s.SummaryLines() {
			fmt.Fprintf(w, "%s: %s\n", color.New(color.Bold).Sprint(kv[0]), kv[1])
		}
		printed = true
	}
	if t, ok := data.(tabular); ok {
		if printed {
			if len(t.TableRows()) == 0 {
				return nil
			}
			fmt.Fprintln(w)
		}
		renderTable(w, t.TableHeaders(), t.TableRows())
		return nil
	}
	if printed {
		return nil
	}

	switch v := data.(type) {
	case string:
		fmt.Fprintln(w, v)
	case fmt.Stringer:
		fmt.Fprintln(w, v.String())
	default:
		fmt.Fprintf(w, "%+v\n", v)
	}
	return nil
}

// renderTable writes rows as a bordered table.  An empty result prints a
// single line instead.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(rows)
	table.Render()
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

// PrintNotice shows msg on the banner and echoes it to stderr.
func PrintNotice(cmd *cobra.Command, kind notice.Kind, msg string) {
	if cliCtx, err := GetCLIContext(cmd); err == nil && cliCtx.Banner != nil {
		cliCtx.Banner.Show(kind, msg)
	}
	var prefix string
	switch kind {
	case notice.KindSuccess:
		prefix = color.GreenString("OK:")
	case notice.KindError:
		prefix = color.RedString("FAILED:")
	default:
		prefix = color.CyanString("INFO:")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", prefix, msg)
}

// formatNumber rounds to four decimals and drops trailing zeros.
func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

// formatROI renders an ROI fraction as a percentage.
func formatROI(v float64) string {
	return formatPercent(v * 100)
}

func formatMoney(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 0, 64)
}

// newVersionCmd prints build information.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "roi %s\ncommit: %s\nbuilt:  %s\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}
