// =============================================================================
// TPV & Markup Reporter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the tpvreport CLI. It delegates to the
// cmd package, which defines the Cobra command tree.
//
// USAGE:
//   tpvreport               - Same as 'tpvreport process'
//   tpvreport process       - Consolidate the input files and write reports
//   tpvreport validate      - Check the input files without writing reports
//   tpvreport version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/                  : CLI command definitions (Cobra)
//   - internal/config       : YAML + environment configuration
//   - internal/csvparser    : CSV reading
//   - internal/xlsxparser   : XLSX reading
//   - internal/loader       : input discovery and parallel loading
//   - internal/validation   : schema checks and type coercion
//   - internal/pipeline     : consolidation and run orchestration
//   - internal/aggregate    : per-client statistics
//   - internal/report       : HTML charts and CSV export
//   - pkg/utils             : file management and the processing summary
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/tpv-markup-report/cmd"
)

// main is the entry point of the application.
func main() {
	cmd.Execute()
}
