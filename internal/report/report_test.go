package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/tpv-markup-report/internal/logging"
	"github.com/ginjaninja78/tpv-markup-report/internal/types"
)

func aggRow(client, period, tpv, markup string, count int) types.AggregateRow {
	return types.AggregateRow{
		Client:      client,
		Period:      period,
		TPVSum:      decimal.RequireFromString(tpv),
		MarkupMean:  decimal.RequireFromString(markup),
		RecordCount: count,
	}
}

func sampleData() Data {
	return Data{
		ByClient: []types.AggregateRow{
			aggRow("Beta", "", "50", "0.05", 1),
			aggRow("Acme", "", "175", "0.03", 3),
		},
		Timeline: []types.PeriodRow{
			{Period: "2024-01", TPVSum: decimal.NewFromInt(100), MarkupMean: decimal.RequireFromString("0.02"), RecordCount: 1},
			{Period: "2024-02", TPVSum: decimal.NewFromInt(125), MarkupMean: decimal.RequireFromString("0.04"), RecordCount: 3},
		},
	}
}

func TestRender_WritesFixedFiles(t *testing.T) {
	dir := t.TempDir()

	written, err := NewRenderer(dir, OrderAppearance, logging.Discard()).Render(sampleData())
	require.NoError(t, err)

	assert.Equal(t, []string{
		FileTPVByClient,
		FileMarkupByClient,
		FileTPVOverTime,
		FileMarkupOverTime,
		FileSummaryCSV,
	}, written)

	for _, name := range written {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NoFileExists(t, filepath.Join(dir, FileTPVByClientMonth))

	html, err := os.ReadFile(filepath.Join(dir, FileTPVByClient))
	require.NoError(t, err)
	assert.Contains(t, string(html), "TPV total por cliente")
	assert.Contains(t, string(html), "Acme")
	assert.Contains(t, string(html), ChartID(FileTPVByClient))
}

func TestRender_IsDeterministic(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()

	_, err := NewRenderer(dirA, OrderDesc, logging.Discard()).Render(sampleData())
	require.NoError(t, err)
	written, err := NewRenderer(dirB, OrderDesc, logging.Discard()).Render(sampleData())
	require.NoError(t, err)

	for _, name := range written {
		a, err := os.ReadFile(filepath.Join(dirA, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(dirB, name))
		require.NoError(t, err)
		assert.Equal(t, a, b, "file %s differs between runs", name)
	}
}

func TestRender_EmptyData(t *testing.T) {
	dir := t.TempDir()

	written, err := NewRenderer(dir, "", logging.Discard()).Render(Data{})
	require.NoError(t, err)
	assert.Equal(t, []string{FileTPVByClient, FileMarkupByClient, FileSummaryCSV}, written)

	html, err := os.ReadFile(filepath.Join(dir, FileMarkupByClient))
	require.NoError(t, err)
	assert.Contains(t, string(html), "Sem dados")

	data, err := os.ReadFile(filepath.Join(dir, FileSummaryCSV))
	require.NoError(t, err)
	assert.Equal(t, "Cliente,Periodo,TPV_Total,Markup_Medio,Registros\n", string(data))
}

func TestRender_EscapesMarkupInClientNames(t *testing.T) {
	dir := t.TempDir()
	client := "Acme</script><script>alert(1)</script> & Co"

	data := Data{
		ByClient:       []types.AggregateRow{aggRow(client, "", "10", "0.1", 1)},
		ByClientPeriod: []types.AggregateRow{aggRow(client, "2024-01", "10", "0.1", 1)},
	}
	_, err := NewRenderer(dir, OrderAppearance, logging.Discard()).Render(data)
	require.NoError(t, err)

	for _, name := range []string{FileTPVByClient, FileMarkupByClient, FileTPVByClientMonth} {
		html, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		page := string(html)

		assert.NotContains(t, page, "<script>alert(1)", name)
		assert.NotContains(t, page, "alert(1)</script>", name)
		assert.Contains(t, page, `Acme\u003c/script\u003e\u003cscript\u003ealert(1)\u003c/script\u003e \u0026 Co`, name)
	}
}

func TestRender_ByPeriod(t *testing.T) {
	dir := t.TempDir()
	data := Data{
		ByClient: []types.AggregateRow{aggRow("Acme", "", "30", "0.2", 2)},
		ByClientPeriod: []types.AggregateRow{
			aggRow("Acme", "2024-02", "10", "0.1", 1),
			aggRow("Acme", types.UnknownPeriod, "20", "0.3", 1),
		},
	}

	written, err := NewRenderer(dir, OrderAppearance, logging.Discard()).Render(data)
	require.NoError(t, err)
	assert.Contains(t, written, FileTPVByClientMonth)

	raw, err := os.ReadFile(filepath.Join(dir, FileSummaryCSV))
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		SummaryCSVHeader,
		{"Acme", "2024-02", "10", "0.1", "1"},
		{"Acme", "unknown", "20", "0.3", "1"},
	}, records)
}

func TestRender_UnwritableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	written, err := NewRenderer(filepath.Join(blocker, "reports"), "", logging.Discard()).Render(sampleData())
	require.Error(t, err)
	assert.Empty(t, written)
	assert.Contains(t, err.Error(), FileTPVByClient)
}

func TestSorted(t *testing.T) {
	rows := []types.AggregateRow{
		aggRow("A", "", "10", "0.5", 1),
		aggRow("B", "", "30", "0.1", 1),
		aggRow("C", "", "30", "0.9", 1),
	}

	appearance := NewRenderer("", OrderAppearance, nil).sorted(rows, tpvValue)
	assert.Equal(t, "A", appearance[0].Client)

	desc := NewRenderer("", OrderDesc, nil).sorted(rows, tpvValue)
	assert.Equal(t, []string{"B", "C", "A"}, []string{desc[0].Client, desc[1].Client, desc[2].Client})

	byMarkup := NewRenderer("", OrderDesc, nil).sorted(rows, markupValue)
	assert.Equal(t, "C", byMarkup[0].Client)

	assert.Equal(t, "A", rows[0].Client, "input must not be reordered")
}

func TestChartID(t *testing.T) {
	id := ChartID(FileTPVByClient)
	assert.Equal(t, id, ChartID(FileTPVByClient))
	assert.NotEqual(t, id, ChartID(FileMarkupByClient))
	assert.False(t, strings.Contains(id, "-"))
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, []types.AggregateRow{aggRow("Padaria, Ltda", "", "175", "0.03", 3)}))
	assert.Equal(t, "Cliente,Periodo,TPV_Total,Markup_Medio,Registros\n\"Padaria, Ltda\",,175,0.03,3\n", buf.String())
}
