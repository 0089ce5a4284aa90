package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/tpv-markup-report/internal/types"
)

// noDataSubtitle is shown on charts rendered from an empty table.
const noDataSubtitle = "Sem dados: nenhum registro válido encontrado"

const (
	chartWidth  = "1200px"
	chartHeight = "600px"
)

// ChartID derives a stable element ID from the report file name. go-echarts
// generates a random one otherwise, which would make every run's HTML
// differ. The ID is also used as a JavaScript identifier, hence no hyphens.
func ChartID(fileName string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("tpvreport/"+fileName))
	return "c" + strings.ReplaceAll(id.String(), "-", "")
}

// jsonHTMLEscaper replaces characters that could close or confuse the
// inline script. The replacements are JSON escapes, so ECharts still
// displays the original text.
var jsonHTMLEscaper = strings.NewReplacer(
	"<", `\u003c`,
	">", `\u003e`,
	"&", `\u0026`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
)

// chart is implemented by every go-echarts chart type.
type chart interface {
	Render(w io.Writer) error
}

// renderChart renders c to w with its option JSON HTML-escaped.
//
// go-echarts writes the option object into the page script without
// escaping, so a client name such as "</script>" taken from a spreadsheet
// would end the script block. The option is the single line following
// "let option_<chartID> = "; outside string values JSON never contains
// the escaped characters, so escaping the whole line is safe.
func renderChart(w io.Writer, c chart, fileName string) error {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return err
	}

	page := buf.String()
	marker := "let option_" + ChartID(fileName) + " = "
	start := strings.Index(page, marker)
	if start < 0 {
		return fmt.Errorf("chart option not found in rendered page")
	}
	start += len(marker)

	end := strings.IndexByte(page[start:], '\n')
	if end < 0 {
		end = len(page) - start
	}
	end += start

	_, err := io.WriteString(w, page[:start]+jsonHTMLEscaper.Replace(page[start:end])+page[end:])
	return err
}

// initOpts returns the shared page options for a chart.
func initOpts(fileName, title string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle: title,
		ChartID:   ChartID(fileName),
		Width:     chartWidth,
		Height:    chartHeight,
	})
}

// titleOpts sets the chart title, with a "no data" subtitle when empty.
func titleOpts(title string, empty bool) charts.GlobalOpts {
	t := opts.Title{Title: title}
	if empty {
		t.Subtitle = noDataSubtitle
	}
	return charts.WithTitleOpts(t)
}

// renderClientBar draws one bar per client for the selected metric.
func renderClientBar(w io.Writer, fileName, title, seriesName string, rows []types.AggregateRow, value metric) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(fileName, title),
		titleOpts(title, len(rows) == 0),
		charts.WithXAxisOpts(opts.XAxis{Name: "Cliente"}),
		charts.WithYAxisOpts(opts.YAxis{Name: seriesName}),
	)

	labels := make([]string, len(rows))
	data := make([]opts.BarData, len(rows))
	for i, row := range rows {
		labels[i] = row.Client
		data[i] = opts.BarData{Name: row.Client, Value: value(row).InexactFloat64()}
	}

	bar.SetXAxis(labels).AddSeries(seriesName, data)
	return renderChart(w, bar, fileName)
}

// renderTimeline draws a monthly line for the selected metric.
func renderTimeline(w io.Writer, fileName, title, seriesName string, rows []types.PeriodRow, value func(types.PeriodRow) decimal.Decimal) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(fileName, title),
		titleOpts(title, len(rows) == 0),
		charts.WithXAxisOpts(opts.XAxis{Name: "Data"}),
		charts.WithYAxisOpts(opts.YAxis{Name: seriesName}),
	)

	labels := make([]string, len(rows))
	data := make([]opts.LineData, len(rows))
	for i, row := range rows {
		labels[i] = row.Period
		data[i] = opts.LineData{Name: row.Period, Value: value(row).InexactFloat64()}
	}

	line.SetXAxis(labels).AddSeries(seriesName, data)
	return renderChart(w, line, fileName)
}

// renderClientPeriodBar draws TPV per client with one series per period.
// Clients keep their first-appearance order; periods are chronological
// with the unknown bucket last.
func renderClientPeriodBar(w io.Writer, fileName, title string, rows []types.AggregateRow) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(fileName, title),
		titleOpts(title, len(rows) == 0),
		charts.WithXAxisOpts(opts.XAxis{Name: "Cliente"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "TPV Total"}),
	)

	var clients, periods []string
	clientIdx := make(map[string]int)
	periodSeen := make(map[string]bool)
	cells := make(map[[2]string]decimal.Decimal)

	for _, row := range rows {
		if _, ok := clientIdx[row.Client]; !ok {
			clientIdx[row.Client] = len(clients)
			clients = append(clients, row.Client)
		}
		if !periodSeen[row.Period] {
			periodSeen[row.Period] = true
			periods = append(periods, row.Period)
		}
		cells[[2]string{row.Client, row.Period}] = row.TPVSum
	}

	sort.SliceStable(periods, func(i, j int) bool {
		if periods[i] == types.UnknownPeriod || periods[j] == types.UnknownPeriod {
			return periods[j] == types.UnknownPeriod && periods[i] != types.UnknownPeriod
		}
		return periods[i] < periods[j]
	})

	bar.SetXAxis(clients)
	for _, period := range periods {
		data := make([]opts.BarData, len(clients))
		for i, client := range clients {
			if v, ok := cells[[2]string{client, period}]; ok {
				data[i] = opts.BarData{Value: v.InexactFloat64()}
			} else {
				data[i] = opts.BarData{Value: 0}
			}
		}
		bar.AddSeries(period, data)
	}

	return renderChart(w, bar, fileName)
}
