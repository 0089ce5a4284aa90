// =============================================================================
// TPV & Markup Reporter - Process Command
// =============================================================================
//
// This file defines the 'process' command, which runs the full pipeline:
// load, validate, consolidate, aggregate and render.
//
// COMMAND USAGE:
//   tpvreport process [flags]
//
// FLAGS:
//   --dry-run     : Run everything but do not write to the report directory
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/tpv-markup-report/internal/aggregate"
	"github.com/ginjaninja78/tpv-markup-report/internal/pipeline"
)

// processOptions holds the flags of the process command.
type processOptions struct {
	// dryRun skips writing report files.
	dryRun bool
}

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// newProcessCmd builds the 'process' command.
func newProcessCmd(opts *globalOptions) *cobra.Command {
	proc := &processOptions{}

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Consolidate the input spreadsheets and write the reports",
		Long: `The process command scans the input directory for .csv and .xlsx files
(sorted by name), validates each one, merges the accepted rows and writes the
reports to the report directory. Report file names are fixed, so each run
replaces the previous reports.

Skipped files and dropped rows are printed at the end and recorded in
processing_summary.txt.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, opts, proc)
		},
	}

	addProcessFlags(cmd, proc)

	return cmd
}

// addProcessFlags registers the process flags on cmd. The root command gets
// them too, since it runs the same pipeline.
func addProcessFlags(cmd *cobra.Command, proc *processOptions) {
	cmd.Flags().BoolVar(&proc.dryRun, "dry-run", false,
		"Run the pipeline without writing report files")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess loads the configuration and runs the pipeline.
func runProcess(cmd *cobra.Command, opts *globalOptions, proc *processOptions) error {
	cfg, logger, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== TPV & Markup Reporter ===")
	fmt.Fprintf(out, "Input directory:  %s\n", cfg.InputDir)
	fmt.Fprintf(out, "Report directory: %s\n", cfg.ReportDir)
	if proc.dryRun {
		fmt.Fprintln(out, "Dry run: no files will be written")
	}

	runOpts := pipeline.OptionsFromConfig(cfg, logger)
	runOpts.DryRun = proc.dryRun

	result, err := pipeline.Run(cmd.Context(), runOpts)
	if err != nil {
		return err
	}

	printFiles(out, result.Check)
	printTotals(out, result)

	return nil
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

// printFiles lists the outcome of every discovered file.
func printFiles(out io.Writer, check *pipeline.CheckResult) {
	if len(check.Files) == 0 {
		fmt.Fprintln(out, "No .csv or .xlsx files found in the input directory.")
		return
	}

	fmt.Fprintf(out, "\nFound %d file(s):\n", len(check.Files))
	for _, f := range check.Files {
		switch f.Status {
		case pipeline.StatusLoaded:
			fmt.Fprintf(out, "  ✓ %s (%d record(s), %d dropped)\n", f.Name, f.Records, len(f.RowErrors))
		default:
			fmt.Fprintf(out, "  ✗ %s: %v\n", f.Name, f.Err)
		}
	}
}

// printTotals prints the run summary.
func printTotals(out io.Writer, result *pipeline.Result) {
	total, records := aggregate.Totals(result.Rows)
	s := result.Summary

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Files loaded:    %d\n", s.FilesLoaded)
	fmt.Fprintf(out, "Files rejected:  %d\n", s.FilesRejected)
	fmt.Fprintf(out, "Files failed:    %d\n", s.FilesFailed)
	fmt.Fprintf(out, "Rows dropped:    %d\n", s.RowsDropped)
	fmt.Fprintf(out, "Clients:         %d\n", len(aggregate.Clients(result.Rows)))
	fmt.Fprintf(out, "Records:         %d\n", records)
	fmt.Fprintf(out, "TPV total:       %s\n", total.StringFixed(2))
	fmt.Fprintf(out, "Time elapsed:    %s\n", s.EndTime.Sub(s.StartTime))

	if len(result.Reports) > 0 {
		fmt.Fprintln(out, "\nReports:")
		for _, name := range result.Reports {
			fmt.Fprintf(out, "  %s\n", name)
		}
	}
	if result.SummaryPath != "" {
		fmt.Fprintf(out, "Summary:         %s\n", result.SummaryPath)
	}
}
