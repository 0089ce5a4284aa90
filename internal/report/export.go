package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ginjaninja78/tpv-markup-report/internal/types"
)

// SummaryCSVHeader is the header row of resumo_por_cliente.csv.
var SummaryCSVHeader = []string{"Cliente", "Periodo", "TPV_Total", "Markup_Medio", "Registros"}

// WriteSummaryCSV writes the aggregate rows as CSV. Numbers are written
// with their exact decimal representation.
func WriteSummaryCSV(w io.Writer, rows []types.AggregateRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(SummaryCSVHeader); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.Client,
			row.Period,
			row.TPVSum.String(),
			row.MarkupMean.String(),
			strconv.Itoa(row.RecordCount),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
