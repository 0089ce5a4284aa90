// =============================================================================
// TPV & Markup Reporter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Running the binary
// without a subcommand performs a full reporting run, the same as 'process'.
//
// COBRA CLI STRUCTURE:
//   rootCmd (tpvreport)          == tpvreport process
//   ├── processCmd (tpvreport process)
//   ├── validateCmd (tpvreport validate)
//   └── versionCmd (tpvreport version)
//
// CONFIGURATION PRECEDENCE (highest first):
//   1. Command-line flags (--data-dir, --report-dir, --by-period, --verbose)
//   2. Environment variables (TPV_INPUT_DIR, TPV_REPORT_DIR, ...)
//   3. The YAML config file (--config, default config.yaml)
//   4. Built-in defaults
//
// EXIT CODES:
//   0 : run completed, even if files were skipped or no input was found
//   1 : invalid configuration or unusable input/report directory
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/tpv-markup-report/internal/config"
	"github.com/ginjaninja78/tpv-markup-report/internal/logging"
)

// =============================================================================
// GLOBAL OPTIONS
// =============================================================================

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	// cfgFile is the path to the main configuration file.
	cfgFile string

	// verbose forces debug logging.
	verbose bool

	// dataDir overrides input_dir.
	dataDir string

	// reportDir overrides report_dir.
	reportDir string

	// byPeriod overrides group_by_period.
	byPeriod bool
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// newRootCmd builds the full command tree.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	proc := &processOptions{}

	root := &cobra.Command{
		Use:   "tpvreport",
		Short: "TPV & Markup Reporter - Consolidate client spreadsheets into charts",
		Long: `TPV & Markup Reporter reads every CSV and XLSX spreadsheet in the input
directory, keeps the files that carry the Client, TPV and Markup columns,
merges them into one table and computes per-client totals:

  - TPV total    : sum of TPV
  - Markup médio : simple (unweighted) mean of Markup
  - Registros    : number of rows

The results are written to the report directory as interactive HTML charts,
a CSV summary (resumo_por_cliente.csv) and processing_summary.txt.

Unreadable files, files with missing columns and rows with non-numeric
values are skipped and listed in the summary; they never stop the run.

Example Usage:
  tpvreport                                   # Same as 'tpvreport process'
  tpvreport --data-dir ./planilhas            # Read spreadsheets from another dir
  tpvreport process --by-period               # Also group by month
  tpvreport validate                          # Check input files only`,

		SilenceUsage:  true,
		SilenceErrors: true,

		// With no subcommand, run the full pipeline.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, opts, proc)
		},
	}

	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "config.yaml",
		"Path to the main configuration file (a missing default file is ignored)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable verbose output for debugging")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "",
		"Directory containing the input spreadsheets (overrides input_dir)")
	root.PersistentFlags().StringVar(&opts.reportDir, "report-dir", "",
		"Directory for the generated reports (overrides report_dir)")
	root.PersistentFlags().BoolVar(&opts.byPeriod, "by-period", false,
		"Group by client and month instead of client only")

	addProcessFlags(root, proc)

	root.AddCommand(newProcessCmd(opts))
	root.AddCommand(newValidateCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. This is called by main.main(). Interrupts
// cancel the run between files.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// CONFIGURATION LOADING
// =============================================================================

// loadConfig resolves the configuration for a command and sets up logging.
//
// The config file is only required when --config was given explicitly;
// otherwise a missing config.yaml means "use defaults".
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.MainConfig, *slog.Logger, error) {
	flags := cmd.Flags()

	cfg, err := config.LoadMainConfig(opts.cfgFile, flags.Changed("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if flags.Changed("data-dir") {
		cfg.InputDir = opts.dataDir
	}
	if flags.Changed("report-dir") {
		cfg.ReportDir = opts.reportDir
	}
	if flags.Changed("by-period") {
		cfg.GroupByPeriod = opts.byPeriod
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	logger.Debug("configuration loaded",
		slog.String("config", opts.cfgFile),
		slog.String("input_dir", cfg.InputDir),
		slog.String("report_dir", cfg.ReportDir),
		slog.Bool("group_by_period", cfg.GroupByPeriod),
		slog.Int("workers", cfg.Workers))

	return cfg, logger, nil
}
