// =============================================================================
// TPV & Markup Reporter - XLSX Parser
// =============================================================================
//
// This module reads Excel workbooks into an untyped RawTable, the same shape
// the CSV parser produces, so the validator can treat both formats alike.
//
// SHEET LAYOUT:
//   Only the first sheet of the workbook is read. The first non-empty row is
//   the header; every following row is data.
//
//   | Cliente | TPV    | Markup | Data       |
//   |---------|--------|--------|------------|
//   | Acme    | 100.00 | 0.02   | 2024-01-15 |
//
// CELL VALUES:
//   Cells are read raw (no number formatting applied). Numbers therefore
//   keep their full precision, and date cells arrive as Excel serial numbers
//   which the validator converts back to dates.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/tpv-markup-report/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads the first sheet of an XLSX workbook.
//
// PARAMETERS:
//   - filePath: The path to the XLSX file.
//
// RETURNS:
//   - A RawTable whose SourceFile is the base name of filePath.
//   - An error if the workbook cannot be opened or has no header row.
func Parse(filePath string) (*types.RawTable, error) {
	f, err := excelize.OpenFile(filePath, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	table, err := parseSheet(f, sheetName)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheetName, err)
	}
	table.SourceFile = filepath.Base(filePath)

	return table, nil
}

// parseSheet reads the header and data rows of a single sheet.
func parseSheet(f *excelize.File, sheetName string) (*types.RawTable, error) {
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	headerIndex := -1
	for i, row := range rows {
		if !isRowEmpty(row) {
			headerIndex = i
			break
		}
	}
	if headerIndex < 0 {
		return nil, fmt.Errorf("sheet is empty")
	}

	return &types.RawTable{
		Format:    types.FormatXLSX,
		Headers:   cleanHeaders(rows[headerIndex]),
		Rows:      rows[headerIndex+1:],
		HeaderRow: headerIndex + 1,
	}, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cleanHeaders trims header cells and names blank ones after their column
// letter (e.g. "Column_C").
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			name, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				name = fmt.Sprint(i + 1)
			}
			header = "Column_" + name
		}
		cleaned[i] = header
	}
	return cleaned
}
