// =============================================================================
// TPV & Markup Reporter - Report Renderer
// =============================================================================
//
// This module writes the report artifacts for one run into the report
// directory. File names are fixed, so every run overwrites the previous
// reports and two runs over the same input produce identical files.
//
// OUTPUT FILES:
//   | File                            | When                              |
//   |---------------------------------|-----------------------------------|
//   | tpv_por_cliente.html            | always ("no data" when empty)     |
//   | markup_por_cliente.html         | always ("no data" when empty)     |
//   | tpv_ao_longo_do_tempo.html      | at least one dated record         |
//   | markup_ao_longo_do_tempo.html   | at least one dated record         |
//   | tpv_por_cliente_periodo.html    | grouping by period                |
//   | resumo_por_cliente.csv          | always (header only when empty)   |
//
// Charts are standalone HTML pages built with go-echarts; the ECharts
// script is loaded from its CDN.
//
// =============================================================================

package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/tpv-markup-report/internal/logging"
	"github.com/ginjaninja78/tpv-markup-report/internal/types"
)

// Report file names.
const (
	FileTPVByClient      = "tpv_por_cliente.html"
	FileMarkupByClient   = "markup_por_cliente.html"
	FileTPVOverTime      = "tpv_ao_longo_do_tempo.html"
	FileMarkupOverTime   = "markup_ao_longo_do_tempo.html"
	FileTPVByClientMonth = "tpv_por_cliente_periodo.html"
	FileSummaryCSV       = "resumo_por_cliente.csv"
)

// ChartOrder controls the bar order of the client charts.
type ChartOrder string

const (
	// OrderAppearance keeps the aggregator order (first appearance).
	OrderAppearance ChartOrder = "appearance"

	// OrderDesc puts the highest value first; ties keep appearance order.
	OrderDesc ChartOrder = "desc"
)

// Data is everything the renderer consumes.
type Data struct {
	// ByClient has one row per client.
	ByClient []types.AggregateRow

	// ByClientPeriod has one row per (client, month). Nil unless the run
	// groups by period.
	ByClientPeriod []types.AggregateRow

	// Timeline has one row per month, chronologically.
	Timeline []types.PeriodRow
}

// Renderer writes report files.
type Renderer struct {
	dir    string
	order  ChartOrder
	logger *slog.Logger
}

// NewRenderer creates a Renderer writing into dir. An empty order means
// OrderAppearance.
func NewRenderer(dir string, order ChartOrder, logger *slog.Logger) *Renderer {
	if order == "" {
		order = OrderAppearance
	}
	return &Renderer{
		dir:    dir,
		order:  order,
		logger: logging.OrDefault(logger),
	}
}

// Render writes every applicable report.
//
// RETURNS:
//   - The base names of the files written, in a fixed order.
//   - An error if a file cannot be written. Files written before the
//     failure are left in place.
func (r *Renderer) Render(data Data) ([]string, error) {
	type artifact struct {
		name  string
		write func(*bytes.Buffer) error
	}

	artifacts := []artifact{
		{FileTPVByClient, func(b *bytes.Buffer) error {
			return renderClientBar(b, FileTPVByClient, "TPV total por cliente", "TPV Total",
				r.sorted(data.ByClient, tpvValue), tpvValue)
		}},
		{FileMarkupByClient, func(b *bytes.Buffer) error {
			return renderClientBar(b, FileMarkupByClient, "Markup médio por cliente", "Markup médio",
				r.sorted(data.ByClient, markupValue), markupValue)
		}},
	}

	if len(data.Timeline) > 0 {
		artifacts = append(artifacts,
			artifact{FileTPVOverTime, func(b *bytes.Buffer) error {
				return renderTimeline(b, FileTPVOverTime, "Evolução do TPV ao longo do tempo", "TPV Total",
					data.Timeline, func(p types.PeriodRow) decimal.Decimal { return p.TPVSum })
			}},
			artifact{FileMarkupOverTime, func(b *bytes.Buffer) error {
				return renderTimeline(b, FileMarkupOverTime, "Evolução do markup médio ao longo do tempo", "Markup médio",
					data.Timeline, func(p types.PeriodRow) decimal.Decimal { return p.MarkupMean })
			}},
		)
	}

	if data.ByClientPeriod != nil {
		artifacts = append(artifacts, artifact{FileTPVByClientMonth, func(b *bytes.Buffer) error {
			return renderClientPeriodBar(b, FileTPVByClientMonth, "TPV por cliente e período", data.ByClientPeriod)
		}})
	}

	csvRows := data.ByClient
	if data.ByClientPeriod != nil {
		csvRows = data.ByClientPeriod
	}
	artifacts = append(artifacts, artifact{FileSummaryCSV, func(b *bytes.Buffer) error {
		return WriteSummaryCSV(b, csvRows)
	}})

	written := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		var buf bytes.Buffer
		if err := a.write(&buf); err != nil {
			return written, fmt.Errorf("failed to render %s: %w", a.name, err)
		}

		path := filepath.Join(r.dir, a.name)
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", a.name, err)
		}

		r.logger.Debug("report written", slog.String("file", path), slog.Int("bytes", buf.Len()))
		written = append(written, a.name)
	}

	return written, nil
}

// =============================================================================
// ORDERING
// =============================================================================

// metric selects the charted value of an aggregate row.
type metric func(types.AggregateRow) decimal.Decimal

func tpvValue(row types.AggregateRow) decimal.Decimal    { return row.TPVSum }
func markupValue(row types.AggregateRow) decimal.Decimal { return row.MarkupMean }

// sorted returns rows in the configured chart order. The input slice is
// never modified.
func (r *Renderer) sorted(rows []types.AggregateRow, value metric) []types.AggregateRow {
	out := append([]types.AggregateRow(nil), rows...)
	if r.order != OrderDesc {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return value(out[i]).GreaterThan(value(out[j])) })
	return out
}
