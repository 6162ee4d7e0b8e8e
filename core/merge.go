package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/huangsam/riskmap/schema"
)

// ErrDuplicateColumn is returned when two merge inputs fill the same column.
var ErrDuplicateColumn = errors.New("duplicate column")

// MergeTables outer-joins the given tables on district. The row set is the
// union of every table's keys and a cell is present only when its district
// appears in that column's source table. Keys are canonicalized again on entry
// so tables that disagree only on case or spacing land on the same row; when
// one table holds two spellings of a district the one that sorts last wins.
// Rows come back sorted by district, so input order only decides column order.
func MergeTables(tables ...schema.NamedTable) (*schema.MergedTable, error) {
	merged := &schema.MergedTable{Columns: make([]schema.Column, 0, len(tables))}
	rows := make(map[schema.DistrictID]map[schema.Column]schema.Cell)

	for _, nt := range tables {
		if merged.HasColumn(nt.Name) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, nt.Name)
		}
		merged.Columns = append(merged.Columns, nt.Name)

		for id, v := range nt.Table.Canonical() {
			cells, ok := rows[id]
			if !ok {
				cells = make(map[schema.Column]schema.Cell, len(tables))
				rows[id] = cells
			}
			cells[nt.Name] = schema.Some(v)
		}
	}

	merged.Rows = make([]schema.MergedRow, 0, len(rows))
	for id, cells := range rows {
		merged.Rows = append(merged.Rows, schema.MergedRow{District: id, Cells: cells})
	}
	sort.Slice(merged.Rows, func(i, j int) bool {
		return merged.Rows[i].District < merged.Rows[j].District
	})
	return merged, nil
}
