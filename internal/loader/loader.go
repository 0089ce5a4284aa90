// =============================================================================
// TPV & Markup Reporter - File Loader
// =============================================================================
//
// The loader turns a directory of spreadsheets into RawTables. It owns
// discovery (delegated to pkg/utils), format dispatch and the parallel read.
//
// ORDERING:
//   Files are read concurrently, but every result is stored at the index the
//   file had in the sorted discovery list. The output is therefore identical
//   for any number of workers.
//
// FAILURES:
//   - A missing or unreadable input directory is fatal (FatalSetupError).
//   - A file that cannot be parsed is recorded as a FileParseError and
//     skipped; the other files are still loaded.
//
// =============================================================================

package loader

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/tpv-markup-report/internal/config"
	"github.com/ginjaninja78/tpv-markup-report/internal/csvparser"
	"github.com/ginjaninja78/tpv-markup-report/internal/logging"
	"github.com/ginjaninja78/tpv-markup-report/internal/types"
	"github.com/ginjaninja78/tpv-markup-report/internal/xlsxparser"
	"github.com/ginjaninja78/tpv-markup-report/pkg/utils"
)

// Loader reads every supported spreadsheet in a directory.
type Loader struct {
	csv     config.CSVSettings
	workers int
	logger  *slog.Logger
}

// New creates a Loader. workers < 1 means sequential loading.
func New(csv config.CSVSettings, workers int, logger *slog.Logger) *Loader {
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		csv:     csv,
		workers: workers,
		logger:  logging.OrDefault(logger),
	}
}

// Result is the outcome of Load.
type Result struct {
	// Files is every discovered input file, in processing order.
	Files []utils.InputFile

	// Tables holds the parsed table for each entry of Files, or nil when
	// the file failed to parse.
	Tables []*types.RawTable

	// Errors holds the parse failures, in processing order.
	Errors []*types.FileParseError

	// Ignored lists regular files skipped because of their extension.
	Ignored []string
}

// Loaded returns the successfully parsed tables in processing order.
func (r *Result) Loaded() []*types.RawTable {
	out := make([]*types.RawTable, 0, len(r.Tables))
	for _, t := range r.Tables {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Load discovers and parses the spreadsheets in dir.
//
// RETURNS:
//   - The load result. Zero discovered files is not an error.
//   - A FatalSetupError if dir is missing or unreadable, or the context
//     error if ctx was cancelled.
func (l *Loader) Load(ctx context.Context, dir string) (*Result, error) {
	fm := utils.NewFileManager(dir, "")
	if err := fm.CheckInputDir(); err != nil {
		return nil, err
	}

	files, ignored, err := fm.DiscoverInputFiles()
	if err != nil {
		return nil, err
	}

	for _, name := range ignored {
		l.logger.Debug("ignoring file with unsupported extension", slog.String("file", name))
	}

	l.logger.Info("discovered input files",
		slog.String("dir", dir),
		slog.Int("files", len(files)),
		slog.Int("workers", l.workers))

	tables := make([]*types.RawTable, len(files))
	parseErrs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			table, err := l.parse(file)
			if err != nil {
				parseErrs[i] = err
				return nil
			}
			tables[i] = table
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading cancelled: %w", err)
	}

	result := &Result{
		Files:   files,
		Tables:  tables,
		Ignored: ignored,
	}

	for i, file := range files {
		if parseErrs[i] != nil {
			perr := &types.FileParseError{File: file.Name, Err: parseErrs[i]}
			result.Errors = append(result.Errors, perr)
			l.logger.Warn("skipping unreadable file",
				slog.String("file", file.Name),
				slog.String("error", parseErrs[i].Error()))
			continue
		}
		l.logger.Debug("file loaded",
			slog.String("file", file.Name),
			slog.String("format", string(file.Format)),
			slog.Int("rows", len(tables[i].Rows)))
	}

	return result, nil
}

// parse dispatches a file to the parser for its format.
func (l *Loader) parse(file utils.InputFile) (*types.RawTable, error) {
	var (
		table *types.RawTable
		err   error
	)

	switch file.Format {
	case types.FormatCSV:
		table, err = csvparser.Parse(file.Path, l.csv)
	case types.FormatXLSX:
		table, err = xlsxparser.Parse(file.Path)
	default:
		return nil, fmt.Errorf("unsupported format %q", file.Format)
	}
	if err != nil {
		return nil, err
	}

	table.SourceFile = file.Name
	return table, nil
}
