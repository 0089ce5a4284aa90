package pipeline

import (
	"github.com/ginjaninja78/tpv-markup-report/internal/types"
)

// Consolidate concatenates validated tables into one unified table.
//
// Records keep file order, then row order within each file. Nil entries
// (rejected or unreadable files) are skipped. Nothing is deduplicated:
// repeated client/date combinations coming from different files are all
// kept and summed later by the aggregator. Zero tables yield an empty
// table, not an error.
func Consolidate(tables []*types.ValidatedTable) types.UnifiedTable {
	total := 0
	for _, t := range tables {
		if t != nil {
			total += len(t.Records)
		}
	}

	unified := types.UnifiedTable{
		Records: make([]types.RawRecord, 0, total),
		Sources: []string{},
	}

	for _, t := range tables {
		if t == nil {
			continue
		}
		unified.Records = append(unified.Records, t.Records...)
		unified.Sources = append(unified.Sources, t.SourceFile)
	}

	return unified
}
