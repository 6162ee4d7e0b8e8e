package core

import (
	"maps"
	"sort"

	"github.com/huangsam/riskmap/schema"
)

// JoinGeometry left-joins the scored table onto the geometry records by
// canonical label. Every geometry record yields exactly one row, in source
// order, whether or not it matched. This is the only step that fills with
// zero: unmatched rows and absent cells become 0 for every column of scored.
// Source properties ride along on each row.
func JoinGeometry(scored *schema.MergedTable, geometries []schema.GeometryRecord) *schema.JoinedResult {
	result := &schema.JoinedResult{
		Columns: append([]schema.Column(nil), scored.Columns...),
		Rows:    make([]schema.JoinedRow, len(geometries)),
	}

	joined := make(map[schema.DistrictID]bool, len(geometries))
	missing := make(map[schema.DistrictID]bool)
	for i, g := range geometries {
		id := g.District()
		row := schema.JoinedRow{
			District:   id,
			Label:      g.Label,
			Geometry:   g.Geometry,
			Properties: maps.Clone(g.Properties),
			Values:     make(map[schema.Column]float64, len(scored.Columns)),
		}
		merged, ok := scored.Lookup(id)
		row.Matched = ok
		for _, c := range scored.Columns {
			row.Values[c] = merged.Get(c).OrZero()
		}
		if ok {
			joined[id] = true
		} else {
			missing[id] = true
		}
		result.Rows[i] = row
	}

	for _, r := range scored.Rows {
		if !joined[r.District] {
			result.Unmatched = append(result.Unmatched, r.District)
		}
	}
	for id := range missing {
		result.Missing = append(result.Missing, id)
	}
	sort.Slice(result.Missing, func(i, j int) bool { return result.Missing[i] < result.Missing[j] })
	return result
}
