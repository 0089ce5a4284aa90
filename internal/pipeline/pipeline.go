// =============================================================================
// TPV & Markup Reporter - Pipeline
// =============================================================================
//
// This module orchestrates one reporting run, from the input directory to the
// report files.
//
// PIPELINE:
//   1. Check the input directory and create the report directory
//   2. Discover and parse the spreadsheets (FileLoader)
//   3. Validate each table against the schema (SchemaValidator)
//   4. Concatenate the validated tables (Consolidator)
//   5. Aggregate by client, and by client and month when requested
//   6. Render charts and the CSV export (ReportRenderer)
//   7. Write the processing summary
//
// ERROR POLICY:
//   Only setup failures (step 1, or an unreadable input directory in step 2)
//   abort the run and are returned as errors. Unreadable files, rejected
//   files and dropped rows are collected as warnings in the Result; a run
//   with no usable input still renders "no data" reports.
//
// All settings arrive through Options. Nothing here reads global state, so
// tests can point the pipeline at any directory.
//
// =============================================================================

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/tpv-markup-report/internal/aggregate"
	"github.com/ginjaninja78/tpv-markup-report/internal/config"
	"github.com/ginjaninja78/tpv-markup-report/internal/loader"
	"github.com/ginjaninja78/tpv-markup-report/internal/logging"
	"github.com/ginjaninja78/tpv-markup-report/internal/report"
	"github.com/ginjaninja78/tpv-markup-report/internal/types"
	"github.com/ginjaninja78/tpv-markup-report/internal/validation"
	"github.com/ginjaninja78/tpv-markup-report/pkg/utils"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a run.
type Options struct {
	// InputDir is scanned for .csv and .xlsx files.
	InputDir string

	// ReportDir receives the report files. Created if missing.
	ReportDir string

	// GroupBy selects the aggregation key of the main result.
	GroupBy types.GroupBy

	// CSVSettings controls the CSV delimiter and encoding.
	CSVSettings config.CSVSettings

	// ColumnAliases adds header spellings per column key.
	ColumnAliases map[string][]string

	// Workers bounds concurrent file reads.
	Workers int

	// ChartOrder sets the bar order of the client charts.
	ChartOrder report.ChartOrder

	// DryRun runs every step except writing to ReportDir.
	DryRun bool

	// Logger receives progress output; nil means slog.Default().
	Logger *slog.Logger
}

// OptionsFromConfig builds Options from the loaded configuration.
func OptionsFromConfig(cfg *config.MainConfig, logger *slog.Logger) Options {
	groupBy := types.GroupByClient
	if cfg.GroupByPeriod {
		groupBy = types.GroupByClientPeriod
	}

	return Options{
		InputDir:      cfg.InputDir,
		ReportDir:     cfg.ReportDir,
		GroupBy:       groupBy,
		CSVSettings:   cfg.CSVSettings,
		ColumnAliases: cfg.ColumnAliases,
		Workers:       cfg.Workers,
		ChartOrder:    report.ChartOrder(cfg.ChartOrder),
		Logger:        logger,
	}
}

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// FileStatus values.
const (
	StatusLoaded   = "loaded"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// FileStatus is the outcome for one discovered file.
type FileStatus struct {
	Name   string
	Format types.Format
	Status string

	// Records is the number of accepted rows.
	Records int

	// RowErrors lists the dropped rows.
	RowErrors []*types.RowCoercionError

	// Err is the FileParseError or SchemaRejection for a skipped file.
	Err error
}

// CheckResult is the outcome of loading and validating the input.
type CheckResult struct {
	// Files has one entry per discovered file, in processing order.
	Files []FileStatus

	// Tables holds the validated tables of loaded files, in order.
	Tables []*types.ValidatedTable

	// Ignored lists files skipped for their extension.
	Ignored []string

	// Warnings collects every non-fatal error, in processing order.
	Warnings []error
}

// Result is the outcome of a full run.
type Result struct {
	RunID string

	Check   *CheckResult
	Unified types.UnifiedTable

	// Rows is the aggregate for Options.GroupBy.
	Rows []types.AggregateRow

	// ByClient is always the per-client aggregate; it equals Rows when
	// grouping by client.
	ByClient []types.AggregateRow

	Timeline []types.PeriodRow

	// Reports lists the files written to the report directory.
	Reports []string

	// SummaryPath is empty on dry runs.
	SummaryPath string

	Summary utils.ProcessingSummary
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// Check loads and validates the input directory without aggregating.
//
// RETURNS:
//   - Per-file outcomes and the validated tables.
//   - A FatalSetupError if the input directory is missing or unreadable,
//     or the context error if ctx is cancelled.
func Check(ctx context.Context, opts Options) (*CheckResult, error) {
	logger := logging.OrDefault(opts.Logger)

	loaded, err := loader.New(opts.CSVSettings, opts.Workers, logger).Load(ctx, opts.InputDir)
	if err != nil {
		return nil, err
	}

	validator := validation.NewValidator(opts.ColumnAliases, logger)
	result := &CheckResult{
		Files:   make([]FileStatus, 0, len(loaded.Files)),
		Ignored: loaded.Ignored,
	}

	parseErrs := make(map[string]*types.FileParseError, len(loaded.Errors))
	for _, perr := range loaded.Errors {
		parseErrs[perr.File] = perr
	}

	for i, file := range loaded.Files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("validation cancelled: %w", err)
		}

		status := FileStatus{Name: file.Name, Format: file.Format}

		raw := loaded.Tables[i]
		if raw == nil {
			status.Status = StatusFailed
			status.Err = parseErrs[file.Name]
			result.Warnings = append(result.Warnings, status.Err)
			result.Files = append(result.Files, status)
			continue
		}

		table, rowErrs, err := validator.Validate(raw)
		if err != nil {
			status.Status = StatusRejected
			status.Err = err
			result.Warnings = append(result.Warnings, err)
			result.Files = append(result.Files, status)
			logger.Warn("file rejected", slog.String("file", file.Name), slog.String("reason", err.Error()))
			continue
		}

		status.Status = StatusLoaded
		status.Records = len(table.Records)
		status.RowErrors = rowErrs
		for _, rerr := range rowErrs {
			result.Warnings = append(result.Warnings, rerr)
		}
		if table.DroppedRows > 0 {
			logger.Warn("rows dropped",
				slog.String("file", file.Name),
				slog.Int("dropped", table.DroppedRows),
				slog.Int("kept", len(table.Records)))
		}

		result.Tables = append(result.Tables, table)
		result.Files = append(result.Files, status)
	}

	if len(result.Tables) == 0 {
		result.Warnings = append(result.Warnings, types.ErrEmptyInput)
		logger.Warn("no usable input; reports will be empty", slog.String("dir", opts.InputDir))
	}

	return result, nil
}

// Run executes a full reporting run.
//
// RETURNS:
//   - The run result, including the processing summary.
//   - A FatalSetupError when the input directory is unusable or the report
//     directory cannot be created; any other error means a report could not
//     be written or ctx was cancelled.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.OrDefault(opts.Logger)
	startTime := time.Now()

	result := &Result{RunID: uuid.New().String()}
	logger = logger.With(slog.String("run_id", result.RunID))
	opts.Logger = logger

	// =========================================================================
	// STEP 1: SETUP
	// =========================================================================

	fm := utils.NewFileManager(opts.InputDir, opts.ReportDir)
	if err := fm.CheckInputDir(); err != nil {
		return nil, err
	}
	if !opts.DryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return nil, err
		}
	}

	// =========================================================================
	// STEP 2-3: LOAD AND VALIDATE
	// =========================================================================

	check, err := Check(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Check = check

	// =========================================================================
	// STEP 4: CONSOLIDATE
	// =========================================================================

	result.Unified = Consolidate(check.Tables)
	logger.Info("input consolidated",
		slog.Int("files", len(result.Unified.Sources)),
		slog.Int("records", result.Unified.Len()),
		slog.Bool("dated", result.Unified.HasDates()))

	// =========================================================================
	// STEP 5: AGGREGATE
	// =========================================================================

	result.ByClient = aggregate.Aggregate(result.Unified, types.GroupByClient)
	result.Rows = result.ByClient
	if opts.GroupBy == types.GroupByClientPeriod {
		result.Rows = aggregate.Aggregate(result.Unified, types.GroupByClientPeriod)
	}
	result.Timeline = aggregate.Timeline(result.Unified)

	// =========================================================================
	// STEP 6: RENDER REPORTS
	// =========================================================================

	if !opts.DryRun {
		data := report.Data{
			ByClient: result.ByClient,
			Timeline: result.Timeline,
		}
		if opts.GroupBy == types.GroupByClientPeriod {
			data.ByClientPeriod = result.Rows
		}

		written, err := report.NewRenderer(opts.ReportDir, opts.ChartOrder, logger).Render(data)
		result.Reports = written
		if err != nil {
			return result, err
		}
		logger.Info("reports written", slog.String("dir", opts.ReportDir), slog.Int("files", len(written)))
	}

	// =========================================================================
	// STEP 7: SUMMARY
	// =========================================================================

	result.Summary = buildSummary(result, opts, startTime, time.Now())

	if !opts.DryRun {
		path, err := utils.WriteSummaryLog(result.Summary, opts.ReportDir)
		if err != nil {
			return result, err
		}
		result.SummaryPath = path
	}

	return result, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// buildSummary assembles the processing summary from a finished run.
func buildSummary(result *Result, opts Options, start, end time.Time) utils.ProcessingSummary {
	total, _ := aggregate.Totals(result.Rows)

	summary := utils.ProcessingSummary{
		RunID:        result.RunID,
		StartTime:    start,
		EndTime:      end,
		InputDir:     opts.InputDir,
		ReportDir:    opts.ReportDir,
		GroupBy:      opts.GroupBy.String(),
		RowsAccepted: result.Unified.Len(),
		Groups:       len(result.Rows),
		TotalTPV:     total.String(),
		Reports:      result.Reports,
	}

	if result.Check == nil {
		return summary
	}

	summary.FilesDiscovered = len(result.Check.Files)
	for _, f := range result.Check.Files {
		entry := utils.FileResult{
			Name:    f.Name,
			Status:  f.Status,
			Records: f.Records,
			Dropped: len(f.RowErrors),
		}
		if f.Err != nil {
			entry.Message = f.Err.Error()
		}

		switch f.Status {
		case StatusLoaded:
			summary.FilesLoaded++
		case StatusRejected:
			summary.FilesRejected++
		case StatusFailed:
			summary.FilesFailed++
		}
		summary.RowsDropped += len(f.RowErrors)
		summary.Files = append(summary.Files, entry)
	}

	for _, w := range result.Check.Warnings {
		summary.Warnings = append(summary.Warnings, w.Error())
	}

	return summary
}
