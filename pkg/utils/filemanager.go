// =============================================================================
// TPV & Markup Reporter - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the reporter:
//   - Input file discovery (deterministic order)
//   - Report directory management
//   - Processing summary generation
//
// DISCOVERY RULES:
//   - Only the top level of the input directory is scanned.
//   - Only .csv and .xlsx files are picked up (extension is case-insensitive).
//   - Names starting with "~" (Office lock files) or "." (hidden files) are
//     skipped.
//   - Files are returned sorted by name so every run sees the same order.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ginjaninja78/tpv-markup-report/internal/types"
)

// SummaryFileName is the fixed name of the processing summary.
const SummaryFileName = "processing_summary.txt"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the reporter.
type FileManager struct {
	// InputDir is the directory scanned for spreadsheets.
	InputDir string

	// ReportDir is the directory where reports are written.
	ReportDir string
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, reportDir string) *FileManager {
	return &FileManager{
		InputDir:  inputDir,
		ReportDir: reportDir,
	}
}

// InputFile is a spreadsheet found by DiscoverInputFiles.
type InputFile struct {
	// Path is the full path to the file.
	Path string

	// Name is the base name, used as the provenance tag.
	Name string

	// Format is derived from the extension.
	Format types.Format
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// CheckInputDir verifies that the input directory exists and is a directory.
func (fm *FileManager) CheckInputDir() error {
	info, err := os.Stat(fm.InputDir)
	if err != nil {
		return &types.FatalSetupError{Path: fm.InputDir, Op: "stat input dir", Err: err}
	}
	if !info.IsDir() {
		return &types.FatalSetupError{Path: fm.InputDir, Op: "stat input dir", Err: fmt.Errorf("not a directory")}
	}
	return nil
}

// EnsureDirectories creates the report directory (and parents) if it does
// not exist.
//
// RETURNS:
//   - A FatalSetupError if the directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	if err := os.MkdirAll(fm.ReportDir, 0755); err != nil {
		return &types.FatalSetupError{Path: fm.ReportDir, Op: "create report dir", Err: err}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles scans the input directory for spreadsheets.
//
// RETURNS:
//   - The accepted files, sorted by name.
//   - The names of regular files that were ignored (wrong extension), so
//     the caller can log them.
//   - A FatalSetupError if the directory cannot be read.
func (fm *FileManager) DiscoverInputFiles() ([]InputFile, []string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, nil, &types.FatalSetupError{Path: fm.InputDir, Op: "read input dir", Err: err}
	}

	var files []InputFile
	var ignored []string

	for _, entry := range entries {
		name := entry.Name()

		if strings.HasPrefix(name, "~") || strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(fm.InputDir, name)

		// Follow symlinks; skip anything that is not a regular file.
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		format, ok := FormatFromName(name)
		if !ok {
			ignored = append(ignored, name)
			continue
		}

		files = append(files, InputFile{Path: path, Name: name, Format: format})
	}

	// os.ReadDir already sorts by name; keep the order explicit.
	sort.SliceStable(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return files, ignored, nil
}

// FormatFromName maps a file name to its spreadsheet format.
func FormatFromName(name string) (types.Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return types.FormatCSV, true
	case ".xlsx":
		return types.FormatXLSX, true
	default:
		return "", false
	}
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	InputDir  string
	ReportDir string
	GroupBy   string

	FilesDiscovered int
	FilesLoaded     int
	FilesRejected   int
	FilesFailed     int
	RowsAccepted    int
	RowsDropped     int
	Groups          int
	TotalTPV        string

	Files    []FileResult
	Warnings []string
	Reports  []string
}

// FileResult is the outcome for a single input file.
type FileResult struct {
	Name    string
	Status  string
	Records int
	Dropped int
	Message string
}

// WriteSummaryLog writes a processing summary to processing_summary.txt.
//
// PARAMETERS:
//   - summary:   The processing summary.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir, SummaryFileName)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "TPV & Markup Reporter - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Input Dir:      %s\n"+
		"  Report Dir:     %s\n"+
		"  Group By:       %s\n\n"+
		"Statistics:\n"+
		"  Files Discovered: %d\n"+
		"  Files Loaded:     %d\n"+
		"  Files Rejected:   %d\n"+
		"  Files Failed:     %d\n"+
		"  Rows Accepted:    %d\n"+
		"  Rows Dropped:     %d\n"+
		"  Groups:           %d\n"+
		"  TPV Total:        %s\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.InputDir,
		summary.ReportDir,
		summary.GroupBy,
		summary.FilesDiscovered,
		summary.FilesLoaded,
		summary.FilesRejected,
		summary.FilesFailed,
		summary.RowsAccepted,
		summary.RowsDropped,
		summary.Groups,
		summary.TotalTPV)

	if len(summary.Files) > 0 {
		writer.WriteString("Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, f := range summary.Files {
			fmt.Fprintf(writer, "  %-40s %-9s records=%d dropped=%d\n", f.Name, f.Status, f.Records, f.Dropped)
			if f.Message != "" {
				fmt.Fprintf(writer, "    %s\n", f.Message)
			}
		}
		writer.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		writer.WriteString("Warnings:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(writer, "  - %s\n", w)
		}
		writer.WriteString("\n")
	}

	if len(summary.Reports) > 0 {
		writer.WriteString("Reports:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, r := range summary.Reports {
			fmt.Fprintf(writer, "  %s\n", r)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}
