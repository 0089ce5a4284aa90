package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/tpv-markup-report/internal/logging"
	"github.com/ginjaninja78/tpv-markup-report/internal/types"
)

func newTestValidator(extra map[string][]string) *Validator {
	return NewValidator(extra, logging.Discard())
}

func rawTable(name string, headers []string, rows ...[]string) *types.RawTable {
	return &types.RawTable{
		SourceFile: name,
		Format:     types.FormatCSV,
		Headers:    headers,
		Rows:       rows,
		HeaderRow:  1,
	}
}

func TestValidate_AcceptsLocalizedHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
	}{
		{"english", []string{"Client", "TPV", "Markup"}},
		{"portuguese", []string{"Cliente", "tpv", "Margem"}},
		{"mixed case and spacing", []string{"  NOME_DO-CLIENTE ", "Volume Total", "Mark-Up"}},
		{"accents", []string{"Nome do Cliente", "TPV", "Márgem"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, rowErrs, err := newTestValidator(nil).Validate(rawTable("a.csv", tt.headers, []string{"Acme", "100", "0.02"}))
			require.NoError(t, err)
			assert.Empty(t, rowErrs)
			require.Len(t, table.Records, 1)
			assert.Equal(t, "Acme", table.Records[0].Client)
			assert.True(t, decimal.RequireFromString("100").Equal(table.Records[0].TPV))
			assert.True(t, decimal.RequireFromString("0.02").Equal(table.Records[0].Markup))
			assert.False(t, table.HasDate)
		})
	}
}

func TestValidate_ConfiguredAliases(t *testing.T) {
	v := newTestValidator(map[string][]string{"client": {"Razão Social"}, "tpv": {"valor transacionado"}})

	table, _, err := v.Validate(rawTable("a.csv", []string{"razao social", "Valor Transacionado", "markup"}, []string{"Acme", "1", "2"}))
	require.NoError(t, err)
	assert.Equal(t, "razao social", table.Columns[types.ColumnClient])
	assert.Len(t, table.Records, 1)
}

func TestValidate_RejectsMissingColumns(t *testing.T) {
	table, rowErrs, err := newTestValidator(nil).Validate(rawTable("b.csv", []string{"Cliente", "TPV", "Observacao"}, []string{"Acme", "1", "x"}))
	require.Error(t, err)
	assert.Nil(t, table)
	assert.Nil(t, rowErrs)

	var rej *types.SchemaRejection
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, "b.csv", rej.File)
	assert.Equal(t, []types.Column{types.ColumnMarkup}, rej.Missing)
	assert.Contains(t, err.Error(), "Markup")
}

func TestValidate_RejectsWhenNoRequiredColumns(t *testing.T) {
	_, _, err := newTestValidator(nil).Validate(rawTable("c.csv", []string{"foo", "bar"}))

	var rej *types.SchemaRejection
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, types.RequiredColumns, rej.Missing)
}

func TestValidate_HeaderOnlyIsEmptyNotRejected(t *testing.T) {
	table, rowErrs, err := newTestValidator(nil).Validate(rawTable("d.csv", []string{"Client", "TPV", "Markup"}))
	require.NoError(t, err)
	require.NotNil(t, table)
	assert.Empty(t, table.Records)
	assert.Empty(t, rowErrs)
}

func TestValidate_DropsNonNumericRows(t *testing.T) {
	table, rowErrs, err := newTestValidator(nil).Validate(rawTable("e.csv",
		[]string{"Cliente", "TPV", "Markup"},
		[]string{"Acme", "100", "0.02"},
		[]string{"Beta", "50", "N/A"},
		[]string{"", "", ""},
		[]string{"Gama", "abc", "0.1"},
		[]string{"  ", "10", "0.1"},
		[]string{"Delta", "NaN", "0.1"},
		[]string{"Eps", "5"},
	))
	require.NoError(t, err)

	require.Len(t, table.Records, 1)
	assert.Equal(t, "Acme", table.Records[0].Client)
	assert.Equal(t, 2, table.Records[0].Row)
	assert.Equal(t, "e.csv", table.Records[0].SourceFile)
	assert.Equal(t, 5, table.DroppedRows)

	require.Len(t, rowErrs, 5)
	assert.Equal(t, types.ColumnMarkup, rowErrs[0].Column)
	assert.Equal(t, "N/A", rowErrs[0].Value)
	assert.Equal(t, 3, rowErrs[0].Row)
	assert.ErrorIs(t, rowErrs[0], ErrNotNumeric)

	assert.Equal(t, types.ColumnTPV, rowErrs[1].Column)
	assert.Equal(t, 5, rowErrs[1].Row)

	assert.Equal(t, types.ColumnClient, rowErrs[2].Column)
	assert.ErrorIs(t, rowErrs[2], ErrEmptyValue)

	assert.ErrorIs(t, rowErrs[3], ErrNotFinite)

	assert.Equal(t, types.ColumnMarkup, rowErrs[4].Column)
	assert.ErrorIs(t, rowErrs[4], ErrEmptyValue)
}

func TestValidate_OnlyRowDroppedLeavesEmptyTable(t *testing.T) {
	table, rowErrs, err := newTestValidator(nil).Validate(rawTable("f.csv",
		[]string{"Client", "TPV", "Markup"},
		[]string{"Acme", "100", "N/A"},
	))
	require.NoError(t, err)
	assert.Empty(t, table.Records)
	assert.Equal(t, 1, table.DroppedRows)
	assert.Len(t, rowErrs, 1)
}

func TestValidate_Dates(t *testing.T) {
	raw := rawTable("g.xlsx",
		[]string{"Cliente", "TPV", "Markup", "Data"},
		[]string{"Acme", "1", "0.1", "2024-01-15"},
		[]string{"Acme", "1", "0.1", "not a date"},
		[]string{"Acme", "1", "0.1", ""},
		[]string{"Acme", "1", "0.1", "45306"},
	)
	raw.Format = types.FormatXLSX

	table, _, err := newTestValidator(nil).Validate(raw)
	require.NoError(t, err)
	assert.True(t, table.HasDate)
	require.Len(t, table.Records, 4)

	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	require.NotNil(t, table.Records[0].Date)
	assert.True(t, want.Equal(*table.Records[0].Date))
	assert.Nil(t, table.Records[1].Date)
	assert.Nil(t, table.Records[2].Date)
	require.NotNil(t, table.Records[3].Date)
	assert.Equal(t, "2024-01-15", table.Records[3].Date.Format("2006-01-02"))
}

func TestValidate_DuplicateHeaderFirstWins(t *testing.T) {
	table, _, err := newTestValidator(nil).Validate(rawTable("h.csv",
		[]string{"Cliente", "TPV", "Markup", "Client"},
		[]string{"First", "1", "0.1", "Second"},
	))
	require.NoError(t, err)
	assert.Equal(t, "Cliente", table.Columns[types.ColumnClient])
	assert.Equal(t, "First", table.Records[0].Client)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03-05", "2024-03-05"},
		{"2024-03-05 10:30:00", "2024-03-05"},
		{"2024-03-05T10:30:00Z", "2024-03-05"},
		{"05/03/2024", "2024-03-05"},
		{"2024/03/05", "2024-03-05"},
		{"20240305", "2024-03-05"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			for _, format := range []types.Format{types.FormatCSV, types.FormatXLSX} {
				got := ParseDate(tt.in, format)
				require.NotNil(t, got, "format %s", format)
				assert.Equal(t, tt.want, got.Format("2006-01-02"))
			}
		})
	}

	assert.Nil(t, ParseDate("", types.FormatCSV))
	assert.Nil(t, ParseDate("março", types.FormatCSV))
	assert.Nil(t, ParseDate("-5", types.FormatXLSX))
}

func TestParseDate_SerialNumbersOnlyInXLSX(t *testing.T) {
	got := ParseDate("45292", types.FormatXLSX)
	require.NotNil(t, got)
	assert.Equal(t, "2024-01-01", got.Format("2006-01-02"))

	for _, in := range []string{"45292", "2024", "202401"} {
		assert.Nil(t, ParseDate(in, types.FormatCSV), "value %q", in)
	}
}

func TestValidate_CSVYearIsNotSerialDate(t *testing.T) {
	table, _, err := newTestValidator(nil).Validate(rawTable("y.csv",
		[]string{"Cliente", "TPV", "Markup", "Data"},
		[]string{"Acme", "1", "0.1", "2024"},
		[]string{"Acme", "1", "0.1", "202401"},
	))
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.Nil(t, table.Records[0].Date)
	assert.Nil(t, table.Records[1].Date)
}

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal(" 1234.5678 ")
	require.NoError(t, err)
	assert.Equal(t, "1234.5678", d.String())

	d, err = ParseDecimal("-1e2")
	require.NoError(t, err)
	assert.Equal(t, "-100", d.String())

	for _, bad := range []string{"", "N/A", "1.234,56", "inf", "-Infinity", "nan"} {
		_, err := ParseDecimal(bad)
		assert.Error(t, err, "value %q", bad)
	}
}

func TestParseDecimal_RejectsExtremeExponents(t *testing.T) {
	for _, bad := range []string{"1e-30000000", "1e-2000000000", "5E+65", "1e-65"} {
		_, err := ParseDecimal(bad)
		assert.ErrorIs(t, err, ErrNotNumeric, "value %q", bad)
	}

	d, err := ParseDecimal("1e-64")
	require.NoError(t, err)
	assert.Equal(t, -64, int(d.Exponent()))
}

func TestValidate_DropsRowWithExtremeExponent(t *testing.T) {
	table, rowErrs, err := newTestValidator(nil).Validate(rawTable("e.csv",
		[]string{"Cliente", "TPV", "Markup"},
		[]string{"Acme", "1e-30000000", "0.1"},
		[]string{"Acme", "100", "0.1"},
	))
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, 1, table.DroppedRows)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, types.ColumnTPV, rowErrs[0].Column)
	assert.ErrorIs(t, rowErrs[0], ErrNotNumeric)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "nome do cliente", NormalizeHeader("  Nome_do--Cliente "))
	assert.Equal(t, "periodo", NormalizeHeader("Período"))
	assert.Equal(t, "mes", NormalizeHeader("MÊS"))
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "No row errors.", FormatErrors(nil))

	out := FormatErrors([]*types.RowCoercionError{{File: "a.csv", Row: 3, Column: types.ColumnMarkup, Value: "N/A", Err: ErrNotNumeric}})
	assert.Contains(t, out, "1 row(s) dropped")
	assert.Contains(t, out, `a.csv row 3: column Markup value "N/A"`)
}
