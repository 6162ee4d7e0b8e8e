package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/riskmap/schema"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownColumn is returned when a stage is asked for a column the table lacks.
var ErrUnknownColumn = errors.New("unknown column")

// columnStats holds the extrema of the present cells of one column.
type columnStats struct {
	min, max float64
	present  int
}

// statsFor scans the present cells of column c.
func statsFor(table *schema.MergedTable, c schema.Column) columnStats {
	var s columnStats
	for _, row := range table.Rows {
		cell := row.Get(c)
		if !cell.Present {
			continue
		}
		if s.present == 0 || cell.Value < s.min {
			s.min = cell.Value
		}
		if s.present == 0 || cell.Value > s.max {
			s.max = cell.Value
		}
		s.present++
	}
	return s
}

// rescale maps v onto [0,1]. A constant column collapses to 0.
func (s columnStats) rescale(v float64) float64 {
	if s.max <= s.min {
		return 0
	}
	return (v - s.min) / (s.max - s.min)
}

// normalizeColumn returns the normalized cells of column c in row order.
// Absent cells stay absent so they never feed the extrema.
func normalizeColumn(table *schema.MergedTable, c schema.Column) []schema.Cell {
	stats := statsFor(table, c)
	out := make([]schema.Cell, len(table.Rows))
	for i, row := range table.Rows {
		if cell := row.Get(c); cell.Present {
			out[i] = schema.Some(stats.rescale(cell.Value))
		}
	}
	return out
}

// Normalize min-max rescales each of the given columns independently and
// stores the result under its normalized name on a copy of table. Columns are
// processed concurrently, bounded by workers; the result is the same as a
// sequential pass because no column reads another's output.
func Normalize(ctx context.Context, table *schema.MergedTable, columns []schema.Column, workers int) (*schema.MergedTable, error) {
	for _, c := range columns {
		if !table.HasColumn(c) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
	}
	if workers < 1 {
		workers = 1
	}

	results := make([][]schema.Cell, len(columns))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range columns {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = normalizeColumn(table, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := table.Clone()
	for i, c := range columns {
		name := c.Normalized()
		if !out.HasColumn(name) {
			out.Columns = append(out.Columns, name)
		}
		for r := range out.Rows {
			if out.Rows[r].Cells == nil {
				out.Rows[r].Cells = make(map[schema.Column]schema.Cell)
			}
			if cell := results[i][r]; cell.Present {
				out.Rows[r].Cells[name] = cell
			} else {
				delete(out.Rows[r].Cells, name)
			}
		}
	}
	return out, nil
}
