// Package algo ranks joined districts for presentation.
package algo

import (
	"sort"

	"github.com/huangsam/riskmap/schema"
)

// RankDistricts sorts rows by column in descending order (ascending when asc
// is set) and returns the top 'limit' rows. Ties are broken by DistrictID so
// the order is stable across runs. A limit of 0 or less keeps every row.
// The input slice is not modified.
func RankDistricts(rows []schema.JoinedRow, column schema.Column, limit int, asc bool) []schema.JoinedRow {
	ranked := append([]schema.JoinedRow(nil), rows...)
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := ranked[i].Get(column), ranked[j].Get(column)
		if vi != vj {
			if asc {
				return vi < vj
			}
			return vi > vj
		}
		return ranked[i].District < ranked[j].District
	})
	if limit > 0 && len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}

// Position returns the 1-based rank of district d by column in descending
// order, or 0 when d is not among rows.
func Position(rows []schema.JoinedRow, column schema.Column, d schema.DistrictID) int {
	for i, r := range RankDistricts(rows, column, 0, false) {
		if r.District == d {
			return i + 1
		}
	}
	return 0
}
