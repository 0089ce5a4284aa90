// =============================================================================
// TPV & Markup Reporter - Schema Validator
// =============================================================================
//
// This module turns an untyped RawTable into a ValidatedTable of typed
// records. It enforces the fixed input schema:
//
//   | Canonical | Required | Accepted header spellings (plus configured aliases) |
//   |-----------|----------|-----------------------------------------------------|
//   | Client    | yes      | client, cliente, customer, nome do cliente, ...     |
//   | TPV       | yes      | tpv, total payment volume, volume total             |
//   | Markup    | yes      | markup, mark up, margem                             |
//   | Date      | no       | date, data, dt, periodo, mes                        |
//
// Header matching ignores case, accents, surrounding whitespace and the
// choice between spaces, underscores and hyphens ("Nome_do-Cliente" matches
// "nome do cliente").
//
// VALIDATION LEVELS:
//   1. File-level: a file missing any required column is rejected as a whole
//      (SchemaRejection, no table returned).
//   2. Row-level: a row whose Client is blank or whose TPV/Markup is not a
//      finite number is dropped (RowCoercionError) and counted.
//   3. Cell-level: an unparseable Date is cleared; the row is kept.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ginjaninja78/tpv-markup-report/internal/logging"
	"github.com/ginjaninja78/tpv-markup-report/internal/types"
)

// =============================================================================
// COLUMN ALIASES
// =============================================================================

// DefaultAliases lists the built-in header spellings for each column, in
// normalized form.
var DefaultAliases = map[types.Column][]string{
	types.ColumnClient: {"client", "cliente", "customer", "nome do cliente", "nome cliente"},
	types.ColumnTPV:    {"tpv", "total payment volume", "volume total"},
	types.ColumnMarkup: {"markup", "mark up", "margem"},
	types.ColumnDate:   {"date", "data", "dt", "periodo", "mes"},
}

// aliasKeyColumns maps configuration keys to canonical columns.
var aliasKeyColumns = map[string]types.Column{
	"client": types.ColumnClient,
	"tpv":    types.ColumnTPV,
	"markup": types.ColumnMarkup,
	"date":   types.ColumnDate,
}

// Sentinel causes wrapped by RowCoercionError.
var (
	ErrEmptyValue = errors.New("empty value")
	ErrNotNumeric = errors.New("not a number")
	ErrNotFinite  = errors.New("not a finite number")
)

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks raw tables against the fixed schema.
type Validator struct {
	aliases map[string]types.Column
	logger  *slog.Logger
}

// NewValidator creates a Validator with the built-in aliases plus extra.
//
// PARAMETERS:
//   - extra:  Additional header spellings keyed by "client", "tpv", "markup"
//             or "date" (as in the column_aliases config section). Unknown
//             keys are ignored; the config layer rejects them earlier.
//   - logger: Logger for debug output; nil means slog.Default().
func NewValidator(extra map[string][]string, logger *slog.Logger) *Validator {
	v := &Validator{
		aliases: make(map[string]types.Column),
		logger:  logging.OrDefault(logger),
	}

	for column, names := range DefaultAliases {
		for _, name := range names {
			v.aliases[NormalizeHeader(name)] = column
		}
	}

	for key, names := range extra {
		column, ok := aliasKeyColumns[strings.ToLower(key)]
		if !ok {
			continue
		}
		for _, name := range names {
			if n := NormalizeHeader(name); n != "" {
				v.aliases[n] = column
			}
		}
	}

	return v
}

// Validate converts raw into typed records.
//
// RETURNS:
//   - The validated table (possibly with zero records) and the errors of
//     every dropped row, in row order.
//   - A *types.SchemaRejection and a nil table when a required column is
//     missing.
func (v *Validator) Validate(raw *types.RawTable) (*types.ValidatedTable, []*types.RowCoercionError, error) {
	columns, index := v.MatchColumns(raw.SourceFile, raw.Headers)

	var missing []types.Column
	for _, c := range types.RequiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &types.SchemaRejection{
			File:    raw.SourceFile,
			Missing: missing,
			Headers: raw.Headers,
		}
	}

	dateIdx, hasDate := index[types.ColumnDate]

	table := &types.ValidatedTable{
		SourceFile: raw.SourceFile,
		Records:    make([]types.RawRecord, 0, len(raw.Rows)),
		HasDate:    hasDate,
		Columns:    columns,
	}
	var rowErrs []*types.RowCoercionError

	for i, row := range raw.Rows {
		if isBlank(row) {
			continue
		}

		rowNum := raw.RowNumber(i)
		record, rerr := coerceRow(row, index)
		if rerr != nil {
			rerr.File = raw.SourceFile
			rerr.Row = rowNum
			rowErrs = append(rowErrs, rerr)
			table.DroppedRows++
			continue
		}

		if hasDate {
			record.Date = ParseDate(cell(row, dateIdx), raw.Format)
		}
		record.SourceFile = raw.SourceFile
		record.Row = rowNum

		table.Records = append(table.Records, record)
	}

	return table, rowErrs, nil
}

// MatchColumns maps canonical columns to header positions.
//
// RETURNS:
//   - The header text each column was matched from.
//   - The column index of each matched column. When several headers match
//     the same column the first one wins.
func (v *Validator) MatchColumns(file string, headers []string) (map[types.Column]string, map[types.Column]int) {
	names := make(map[types.Column]string)
	index := make(map[types.Column]int)

	for i, header := range headers {
		column, ok := v.aliases[NormalizeHeader(header)]
		if !ok {
			continue
		}
		if prev, dup := names[column]; dup {
			v.logger.Debug("ignoring duplicate column header",
				slog.String("file", file),
				slog.String("column", string(column)),
				slog.String("kept", prev),
				slog.String("ignored", header))
			continue
		}
		names[column] = header
		index[column] = i
	}

	return names, index
}

// =============================================================================
// ROW COERCION
// =============================================================================

// coerceRow builds a record from the Client, TPV and Markup cells. The
// returned error has File and Row left for the caller to fill in.
func coerceRow(row []string, index map[types.Column]int) (types.RawRecord, *types.RowCoercionError) {
	var record types.RawRecord

	client := strings.TrimSpace(cell(row, index[types.ColumnClient]))
	if client == "" {
		return record, &types.RowCoercionError{Column: types.ColumnClient, Value: client, Err: ErrEmptyValue}
	}
	record.Client = client

	tpvRaw := cell(row, index[types.ColumnTPV])
	tpv, err := ParseDecimal(tpvRaw)
	if err != nil {
		return record, &types.RowCoercionError{Column: types.ColumnTPV, Value: tpvRaw, Err: err}
	}
	record.TPV = tpv

	markupRaw := cell(row, index[types.ColumnMarkup])
	markup, err := ParseDecimal(markupRaw)
	if err != nil {
		return record, &types.RowCoercionError{Column: types.ColumnMarkup, Value: markupRaw, Err: err}
	}
	record.Markup = markup

	return record, nil
}

// maxExponent bounds the decimal exponent of a numeric cell. Adding values
// with very different exponents rescales them to a common one, so a cell
// like "1e-30000000" would otherwise turn a sum into a huge integer.
const maxExponent = 64

// ParseDecimal parses a numeric cell. Only plain notation with a dot as
// decimal separator (and optional exponent) is accepted; values such as
// "N/A", "1.234,56" or "NaN" are errors, and so is any value whose
// exponent is beyond ±maxExponent.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyValue
	}

	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "nan", "inf", "infinity":
		return decimal.Zero, ErrNotFinite
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return decimal.Zero, fmt.Errorf("%w: %q: exponent out of range", ErrNotNumeric, s)
	}
	return d, nil
}

// =============================================================================
// DATE PARSING
// =============================================================================

// dateLayouts are tried in order. Day-first is preferred for slashes.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2006/01/02",
	"01-02-06",
	"20060102",
}

// Excel serial numbers outside this range are not treated as dates
// (1 = 1900-01-01, 2958465 = 9999-12-31).
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ParseDate parses a date cell read from a file of the given format. It
// returns nil for empty or unparseable values instead of an error: a bad
// date never drops a row.
//
// Bare numbers are Excel serial days only in XLSX files, whose date cells
// are read raw. In CSV files a value like "2024" is not a date.
func ParseDate(s string, format types.Format) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if format == types.FormatXLSX {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minExcelSerial && f <= maxExcelSerial {
			if t, err := excelize.ExcelDateToTime(f, false); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// NormalizeHeader folds a header for alias lookup: lower case, no accents,
// single spaces instead of runs of whitespace, underscores or hyphens.
func NormalizeHeader(h string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), h)
	if err != nil {
		folded = h
	}

	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, folded)

	return strings.Join(strings.Fields(folded), " ")
}

// cell returns the trimmed value at i, or "" for short rows.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// isBlank reports whether every cell of the row is empty.
func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// FormatErrors formats row errors for display.
func FormatErrors(errs []*types.RowCoercionError) string {
	if len(errs) == 0 {
		return "No row errors."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "%d row(s) dropped:\n", len(errs))
	for i, err := range errs {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, err.Error())
	}
	return builder.String()
}
