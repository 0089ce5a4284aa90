// =============================================================================
// TPV & Markup Reporter - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. It loads and validates the input
// files exactly like 'process' does, prints the outcome per file, and stops
// there: nothing is aggregated and nothing is written.
//
// COMMAND USAGE:
//   tpvreport validate [--strict]
//
// FLAGS:
//   --strict : exit non-zero if any file was rejected or unreadable, or any
//              row was dropped
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/tpv-markup-report/internal/pipeline"
	"github.com/ginjaninja78/tpv-markup-report/internal/validation"
)

// newValidateCmd builds the 'validate' command.
func newValidateCmd(opts *globalOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the input spreadsheets without writing reports",
		Long: `The validate command reads every spreadsheet in the input directory and
reports, per file, whether it was accepted, how many rows were kept and
which rows were dropped (and why).`,

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			check, err := pipeline.Check(cmd.Context(), pipeline.OptionsFromConfig(cfg, logger))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printFiles(out, check)

			problems := 0
			for _, f := range check.Files {
				if f.Status != pipeline.StatusLoaded || len(f.RowErrors) > 0 {
					problems++
				}
				if len(f.RowErrors) > 0 {
					fmt.Fprintf(out, "\n%s: %s", f.Name, validation.FormatErrors(f.RowErrors))
				}
			}
			fmt.Fprintf(out, "\n%d file(s) checked, %d with problems\n", len(check.Files), problems)

			if strict && problems > 0 {
				return fmt.Errorf("validation failed: %d file(s) with problems", problems)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false,
		"Exit with an error if any file or row was skipped")

	return cmd
}
