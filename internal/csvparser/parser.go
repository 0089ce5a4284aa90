// =============================================================================
// TPV & Markup Reporter - CSV Parser Module
// =============================================================================
//
// This module reads CSV exports into an untyped RawTable. It does not know
// anything about the Client/TPV/Markup schema: matching headers and coercing
// values is the job of the validation package.
//
// FEATURES:
//   - Configurable delimiter (comma, semicolon, pipe, tab)
//   - UTF-8 (with or without BOM), Windows-1252 and ISO-8859-1 input
//   - Leading blank lines skipped; the first non-blank row is the header
//   - Ragged rows tolerated (short rows are padded by the validator)
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/tpv-markup-report/internal/config"
	"github.com/ginjaninja78/tpv-markup-report/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns its header and data rows.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings (delimiter and encoding).
//
// RETURNS:
//   - A RawTable whose SourceFile is the base name of filePath.
//   - An error if the file cannot be opened, decoded or parsed, or holds
//     no header row at all.
func Parse(filePath string, settings config.CSVSettings) (*types.RawTable, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return parseReader(file, filepath.Base(filePath), settings)
}

// parseReader does the work of Parse on an already opened stream.
func parseReader(r io.Reader, name string, settings config.CSVSettings) (*types.RawTable, error) {
	decoded, err := decodeReader(bufio.NewReader(r), settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(decoded)
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	headerIndex := -1
	for i, row := range allRows {
		if !isRowEmpty(row) {
			headerIndex = i
			break
		}
	}
	if headerIndex < 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	return &types.RawTable{
		SourceFile: name,
		Format:     types.FormatCSV,
		Headers:    cleanHeaders(allRows[headerIndex]),
		Rows:       allRows[headerIndex+1:],
		HeaderRow:  headerIndex + 1,
	}, nil
}

// decodeReader wraps r so that it yields UTF-8.
//
// ENCODINGS:
//   - "utf-8" / "utf8" (default): a leading byte order mark is removed.
//   - "windows-1252" / "cp1252":  common for spreadsheets saved by Excel on Windows.
//   - "iso-8859-1" / "latin1"
//
// The accepted names match config.SupportedEncodings.
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case "iso-8859-1", "latin1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	reader.Comma = Delimiter(settings.Delimiter)

	// Rows may have fewer or more fields than the header.
	reader.FieldsPerRecord = -1

	// Exports from some billing systems leave stray quotes inside fields.
	reader.LazyQuotes = true

	reader.TrimLeadingSpace = true
}

// Delimiter resolves a configured delimiter name to the field separator.
func Delimiter(name string) rune {
	switch name {
	case "\\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	default:
		if r, size := utf8.DecodeRuneInString(name); size > 0 && r != utf8.RuneError {
			return r
		}
		return ','
	}
}

// cleanHeaders trims header values and names blank ones by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
