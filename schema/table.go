package schema

import (
	"maps"
	"sort"
)

// MetricTable maps a district to one raw, unit-specific measurement.
type MetricTable map[DistrictID]float64

// NewMetricTable builds a MetricTable from raw district names, canonicalizing
// every key. When two raw names collapse to the same DistrictID the one that
// sorts last wins, so the result does not depend on map iteration order.
func NewMetricTable(raw map[string]float64) MetricTable {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	table := make(MetricTable, len(raw))
	for _, name := range names {
		table[NewDistrictID(name)] = raw[name]
	}
	return table
}

// Keys returns the table's districts in sorted order.
func (t MetricTable) Keys() []DistrictID {
	keys := make([]DistrictID, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Canonical returns the table with every key passed through NewDistrictID
// again. Colliding keys resolve like NewMetricTable: the one that sorts last wins.
func (t MetricTable) Canonical() MetricTable {
	out := make(MetricTable, len(t))
	for _, k := range t.Keys() {
		out[NewDistrictID(string(k))] = t[k]
	}
	return out
}

// Clone returns a copy of the table.
func (t MetricTable) Clone() MetricTable {
	return maps.Clone(t)
}

// NamedTable is a MetricTable bound to the column it fills.
type NamedTable struct {
	Name  Column
	Table MetricTable
}

// Cell is an optional value. A zero Cell is absent, which is not the same as
// a present 0.
type Cell struct {
	Value   float64
	Present bool
}

// Some returns a present Cell holding v.
func Some(v float64) Cell {
	return Cell{Value: v, Present: true}
}

// OrZero returns the value, or 0 when absent.
func (c Cell) OrZero() float64 {
	if !c.Present {
		return 0
	}
	return c.Value
}

// MergedRow is one district of a merged table.
type MergedRow struct {
	District DistrictID
	Cells    map[Column]Cell
}

// Get returns the cell for column c; a missing column reads as absent.
func (r MergedRow) Get(c Column) Cell {
	return r.Cells[c]
}

// MergedTable is the outer union of several metric tables, one row per district.
// Rows are sorted by District.
type MergedTable struct {
	Columns []Column
	Rows    []MergedRow
}

// HasColumn reports whether the table carries column c.
func (t *MergedTable) HasColumn(c Column) bool {
	for _, col := range t.Columns {
		if col == c {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so later stages never mutate their input.
func (t *MergedTable) Clone() *MergedTable {
	clone := &MergedTable{
		Columns: append([]Column(nil), t.Columns...),
		Rows:    make([]MergedRow, len(t.Rows)),
	}
	for i, row := range t.Rows {
		clone.Rows[i] = MergedRow{District: row.District, Cells: maps.Clone(row.Cells)}
	}
	return clone
}

// Lookup returns the row for district d.
func (t *MergedTable) Lookup(d DistrictID) (MergedRow, bool) {
	i := sort.Search(len(t.Rows), func(i int) bool { return t.Rows[i].District >= d })
	if i < len(t.Rows) && t.Rows[i].District == d {
		return t.Rows[i], true
	}
	return MergedRow{}, false
}

// Inputs are the six raw tables the pipeline consumes.
type Inputs struct {
	Population         MetricTable
	Area               MetricTable
	SoilHazard         MetricTable
	SubstandardHousing MetricTable
	Casualties         MetricTable
	DestroyedHousing   MetricTable
}
