// =============================================================================
// TPV & Markup Reporter - Aggregator
// =============================================================================
//
// This module derives summary rows from the unified table.
//
// STATISTICS (per group):
//   - TPVSum      : sum of TPV
//   - MarkupMean  : arithmetic mean of Markup, NOT weighted by TPV. Markup
//                   is treated as a rate; every record counts once.
//   - RecordCount : number of records in the group
//
// ORDERING:
//   Groups are emitted in the order their key first appears in the unified
//   table. The order is tracked with an explicit insertion index, never by
//   iterating a map.
//
// ARITHMETIC:
//   All values are shopspring/decimal. Sums are exact; the mean is rounded
//   half away from zero to MarkupScale places, so repeated runs produce
//   identical output.
//
// =============================================================================

package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/tpv-markup-report/internal/types"
)

// MarkupScale is the number of decimal places kept in MarkupMean.
const MarkupScale = 10

// PeriodLayout formats a date as its month bucket.
const PeriodLayout = "2006-01"

// groupKey identifies one aggregation group.
type groupKey struct {
	client string
	period string
}

// accumulator collects running totals for a group.
type accumulator struct {
	tpv    decimal.Decimal
	markup decimal.Decimal
	count  int
}

func (a *accumulator) add(r types.RawRecord) {
	a.tpv = a.tpv.Add(r.TPV)
	a.markup = a.markup.Add(r.Markup)
	a.count++
}

func (a *accumulator) mean() decimal.Decimal {
	if a.count == 0 {
		return decimal.Zero
	}
	return a.markup.DivRound(decimal.NewFromInt(int64(a.count)), MarkupScale)
}

// orderedGroups is an insertion-ordered map from key to accumulator.
type orderedGroups struct {
	keys  []groupKey
	index map[groupKey]int
	accs  []*accumulator
}

func newOrderedGroups() *orderedGroups {
	return &orderedGroups{index: make(map[groupKey]int)}
}

// get returns the accumulator for k, creating it at the end if needed.
func (g *orderedGroups) get(k groupKey) *accumulator {
	if i, ok := g.index[k]; ok {
		return g.accs[i]
	}
	g.index[k] = len(g.keys)
	g.keys = append(g.keys, k)
	acc := &accumulator{}
	g.accs = append(g.accs, acc)
	return acc
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Aggregate groups the unified table and computes per-group statistics.
//
// PARAMETERS:
//   - table:   The unified table.
//   - groupBy: GroupByClient, or GroupByClientPeriod to add the month of
//              each record's Date to the key. Undated records then fall
//              into the UnknownPeriod bucket of their client.
//
// RETURNS:
//   - One row per group in first-appearance order. Empty input yields an
//     empty, non-nil slice.
func Aggregate(table types.UnifiedTable, groupBy types.GroupBy) []types.AggregateRow {
	groups := newOrderedGroups()

	for _, r := range table.Records {
		k := groupKey{client: r.Client}
		if groupBy == types.GroupByClientPeriod {
			k.period = Period(r.Date)
		}
		groups.get(k).add(r)
	}

	rows := make([]types.AggregateRow, len(groups.keys))
	for i, k := range groups.keys {
		acc := groups.accs[i]
		rows[i] = types.AggregateRow{
			Client:      k.client,
			Period:      k.period,
			TPVSum:      acc.tpv,
			MarkupMean:  acc.mean(),
			RecordCount: acc.count,
		}
	}

	return rows
}

// Period returns the month bucket of a date ("2006-01"), or UnknownPeriod
// for nil.
func Period(t *time.Time) string {
	if t == nil {
		return types.UnknownPeriod
	}
	return t.Format(PeriodLayout)
}

// Timeline groups dated records by month across all clients, sorted
// chronologically. Undated records are left out.
func Timeline(table types.UnifiedTable) []types.PeriodRow {
	groups := newOrderedGroups()

	for _, r := range table.Records {
		if r.Date == nil {
			continue
		}
		groups.get(groupKey{period: Period(r.Date)}).add(r)
	}

	rows := make([]types.PeriodRow, len(groups.keys))
	for i, k := range groups.keys {
		acc := groups.accs[i]
		rows[i] = types.PeriodRow{
			Period:      k.period,
			TPVSum:      acc.tpv,
			MarkupMean:  acc.mean(),
			RecordCount: acc.count,
		}
	}

	// "YYYY-MM" sorts chronologically as a string.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Period < rows[j].Period })

	return rows
}

// Totals returns the overall TPV and record count of the aggregate rows.
func Totals(rows []types.AggregateRow) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, r := range rows {
		total = total.Add(r.TPVSum)
		count += r.RecordCount
	}
	return total, count
}

// Clients returns the distinct client names of rows in first-appearance
// order.
func Clients(rows []types.AggregateRow) []string {
	seen := make(map[string]bool, len(rows))
	var clients []string
	for _, r := range rows {
		if !seen[r.Client] {
			seen[r.Client] = true
			clients = append(clients, r.Client)
		}
	}
	return clients
}
