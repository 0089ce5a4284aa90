// =============================================================================
// TPV & Markup Reporter - Error Taxonomy
// =============================================================================
//
// Errors are split by blast radius:
//   - FileParseError    : one file unreadable          -> file skipped
//   - SchemaRejection   : one file missing columns     -> file skipped
//   - RowCoercionError  : one row with a bad value     -> row dropped
//   - ErrEmptyInput     : nothing usable was loaded    -> empty report
//   - FatalSetupError   : input/output dir unusable    -> run aborted
//
// Only FatalSetupError is returned to the caller. Everything else is
// collected as a warning in the run summary.
//
// =============================================================================

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyInput signals that no validated table was produced. It is
// informational: the run still renders an empty report.
var ErrEmptyInput = errors.New("no validated input tables")

// FileParseError is recorded when a file cannot be read or parsed.
type FileParseError struct {
	File string
	Err  error
}

func (e *FileParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.File, e.Err)
}

func (e *FileParseError) Unwrap() error {
	return e.Err
}

// SchemaRejection is recorded when a file lacks one or more required columns.
type SchemaRejection struct {
	File    string
	Missing []Column
	Headers []string
}

func (e *SchemaRejection) Error() string {
	missing := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		missing[i] = string(c)
	}
	return fmt.Sprintf("%s rejected: missing required column(s) %s", e.File, strings.Join(missing, ", "))
}

// RowCoercionError is recorded for each dropped row.
type RowCoercionError struct {
	File   string
	Row    int
	Column Column
	Value  string
	Err    error
}

func (e *RowCoercionError) Error() string {
	return fmt.Sprintf("%s row %d: column %s value %q: %v", e.File, e.Row, e.Column, e.Value, e.Err)
}

func (e *RowCoercionError) Unwrap() error {
	return e.Err
}

// FatalSetupError aborts the run. It wraps the underlying filesystem error.
type FatalSetupError struct {
	Path string
	Op   string
	Err  error
}

func (e *FatalSetupError) Error() string {
	return fmt.Sprintf("setup failed: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FatalSetupError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err should abort the run.
func IsFatal(err error) bool {
	var fatal *FatalSetupError
	return errors.As(err, &fatal)
}
