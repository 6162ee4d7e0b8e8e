package schema

import "github.com/twpayne/go-geom"

// GeometryRecord is one externally supplied district boundary. The pipeline
// reads Label for the join key and never mutates Geometry.
type GeometryRecord struct {
	Label      string
	Geometry   geom.T
	Properties map[string]any
}

// District returns the canonical join key of the record's label.
func (g GeometryRecord) District() DistrictID {
	return NewDistrictID(g.Label)
}

// Bounds returns the bounding box of the geometry, or nil when there is none.
func (g GeometryRecord) Bounds() *geom.Bounds {
	if g.Geometry == nil {
		return nil
	}
	return g.Geometry.Bounds()
}

// JoinedRow is one geometry record with every metric column attached.
// All values are present; anything missing upstream is 0. Geometry and
// Properties come from the geometry source and are not serialized.
type JoinedRow struct {
	District   DistrictID         `json:"district"`
	Label      string             `json:"label"`
	Matched    bool               `json:"matched"`
	Values     map[Column]float64 `json:"values"`
	Geometry   geom.T             `json:"-"`
	Properties map[string]any     `json:"-"`
}

// Get returns the value of column c.
func (r JoinedRow) Get(c Column) float64 {
	return r.Values[c]
}

// JoinedResult is the left join of the scored table onto the geometry source,
// one row per geometry record in source order.
type JoinedResult struct {
	Columns []Column    `json:"columns"`
	Rows    []JoinedRow `json:"rows"`

	// Unmatched lists districts that carry metrics but have no geometry.
	Unmatched []DistrictID `json:"unmatched"`

	// Missing lists geometry districts that carry no metrics.
	Missing []DistrictID `json:"missing"`
}

// Find returns the joined row for district d.
func (r *JoinedResult) Find(d DistrictID) (JoinedRow, bool) {
	for _, row := range r.Rows {
		if row.District == d {
			return row, true
		}
	}
	return JoinedRow{}, false
}
