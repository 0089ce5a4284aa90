// =============================================================================
// TPV & Markup Reporter - Shared Types
// =============================================================================
//
// This package contains the data model shared by every stage of the
// consolidation pipeline. Keeping the types here avoids import cycles between:
//   - loader      (produces RawTable)
//   - validation  (produces ValidatedTable / RawRecord)
//   - pipeline    (produces UnifiedTable)
//   - aggregate   (produces AggregateRow / PeriodRow)
//   - report      (consumes AggregateRow / PeriodRow)
//
// OWNERSHIP:
//   RawRecord values are created once by the validator and never mutated.
//   UnifiedTable is assembled only by the consolidator. AggregateRow is a
//   derived value recomputed on every run.
//
// =============================================================================

package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CANONICAL COLUMNS
// =============================================================================

// Column identifies one of the canonical input columns.
type Column string

const (
	ColumnClient Column = "Client"
	ColumnTPV    Column = "TPV"
	ColumnMarkup Column = "Markup"
	ColumnDate   Column = "Date"
)

// RequiredColumns lists the columns every accepted file must carry.
// Date is optional and therefore not part of this list.
var RequiredColumns = []Column{ColumnClient, ColumnTPV, ColumnMarkup}

// =============================================================================
// FILE FORMATS
// =============================================================================

// Format is the spreadsheet format a file was read from.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// =============================================================================
// RAW TABLE (loader output)
// =============================================================================

// RawTable is an untyped grid read from a single source file.
type RawTable struct {
	// SourceFile is the base name of the file the table was read from.
	SourceFile string

	// Format is the format the file was parsed as.
	Format Format

	// Headers is the header row, trimmed.
	Headers []string

	// Rows holds the data rows, excluding the header.
	Rows [][]string

	// HeaderRow is the 1-based spreadsheet row of the header.
	// Data row i (0-based) lives at spreadsheet row HeaderRow+1+i.
	HeaderRow int
}

// RowNumber returns the 1-based spreadsheet row for data row index i.
func (t *RawTable) RowNumber(i int) int {
	return t.HeaderRow + 1 + i
}

// =============================================================================
// RECORDS AND TABLES
// =============================================================================

// RawRecord is one validated row from a source file.
type RawRecord struct {
	// Client is the trimmed client name. Never empty.
	Client string

	// TPV is the total payment volume for the row.
	TPV decimal.Decimal

	// Markup is the rate associated with the row.
	Markup decimal.Decimal

	// Date is nil when the file has no date column or the cell could not
	// be parsed.
	Date *time.Time

	// SourceFile is the provenance tag set at load time.
	SourceFile string

	// Row is the 1-based spreadsheet row the record came from.
	Row int
}

// ValidatedTable holds the accepted records of a single file.
type ValidatedTable struct {
	SourceFile string
	Records    []RawRecord

	// DroppedRows counts rows removed because a value failed coercion.
	DroppedRows int

	// HasDate reports whether the file carried a date column.
	HasDate bool

	// Columns maps each canonical column to the header it was matched from.
	Columns map[Column]string
}

// UnifiedTable is the concatenation of every accepted file, in discovery
// order and then row order.
type UnifiedTable struct {
	Records []RawRecord

	// Sources lists the files that contributed a table, in order. A file
	// whose rows were all dropped still appears here.
	Sources []string
}

// Len returns the number of records in the table.
func (u UnifiedTable) Len() int {
	return len(u.Records)
}

// HasDates reports whether at least one record carries a date.
func (u UnifiedTable) HasDates() bool {
	for _, r := range u.Records {
		if r.Date != nil {
			return true
		}
	}
	return false
}

// =============================================================================
// AGGREGATES
// =============================================================================

// GroupBy selects the aggregation key.
type GroupBy int

const (
	// GroupByClient produces one row per client.
	GroupByClient GroupBy = iota

	// GroupByClientPeriod produces one row per (client, month).
	GroupByClientPeriod
)

// String implements fmt.Stringer.
func (g GroupBy) String() string {
	if g == GroupByClientPeriod {
		return "client+period"
	}
	return "client"
}

// UnknownPeriod is the bucket for records without a usable date.
const UnknownPeriod = "unknown"

// AggregateRow is the summary for one (Client [, Period]) group.
type AggregateRow struct {
	Client string

	// Period is empty unless grouping by period.
	Period string

	TPVSum      decimal.Decimal
	MarkupMean  decimal.Decimal
	RecordCount int
}

// PeriodRow is the summary for one month across all clients.
type PeriodRow struct {
	Period      string
	TPVSum      decimal.Decimal
	MarkupMean  decimal.Decimal
	RecordCount int
}
