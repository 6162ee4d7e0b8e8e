package core

import (
	"fmt"

	"github.com/huangsam/riskmap/schema"
)

// Composite stores the unweighted mean of the given normalized columns, times
// schema.CompositeScale, under schema.CompositeScoreColumn on a copy of table.
//
// With ZeroFillPolicy an absent value counts as 0 and the divisor is always
// len(columns), so a district missing data scores lower. With
// ExcludeAbsentPolicy only present values are averaged and a district with
// none of them gets an absent composite.
func Composite(table *schema.MergedTable, columns []schema.Column, policy schema.CompositePolicy) (*schema.MergedTable, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("composite needs at least one column")
	}
	for _, c := range columns {
		if !table.HasColumn(c) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
	}
	if _, ok := schema.ValidCompositePolicies[policy]; !ok {
		return nil, fmt.Errorf("invalid composite policy '%s'. must be zero-fill, exclude-absent", policy)
	}

	out := table.Clone()
	if !out.HasColumn(schema.CompositeScoreColumn) {
		out.Columns = append(out.Columns, schema.CompositeScoreColumn)
	}
	for i, row := range out.Rows {
		var sum float64
		var present int
		for _, c := range columns {
			if cell := row.Get(c); cell.Present {
				sum += cell.Value
				present++
			}
		}

		if out.Rows[i].Cells == nil {
			out.Rows[i].Cells = make(map[schema.Column]schema.Cell)
		}
		divisor := len(columns)
		if policy == schema.ExcludeAbsentPolicy {
			if present == 0 {
				delete(out.Rows[i].Cells, schema.CompositeScoreColumn)
				continue
			}
			divisor = present
		}
		out.Rows[i].Cells[schema.CompositeScoreColumn] = schema.Some(sum / float64(divisor) * schema.CompositeScale)
	}
	return out, nil
}
