package algo

import (
	"testing"

	"github.com/huangsam/riskmap/schema"
	"github.com/stretchr/testify/assert"
)

func row(d string, composite float64) schema.JoinedRow {
	return schema.JoinedRow{
		District: schema.DistrictID(d),
		Label:    d,
		Values:   map[schema.Column]float64{schema.CompositeScoreColumn: composite},
	}
}

func districts(rows []schema.JoinedRow) []schema.DistrictID {
	out := make([]schema.DistrictID, len(rows))
	for i, r := range rows {
		out[i] = r.District
	}
	return out
}

func TestRankDistricts(t *testing.T) {
	rows := []schema.JoinedRow{row("LIMA", 4), row("ATE", 7.5), row("LINCE", 4), row("ANCON", 1)}

	tests := []struct {
		name  string
		limit int
		asc   bool
		want  []schema.DistrictID
	}{
		{name: "descending with tie break", limit: 10, want: []schema.DistrictID{"ATE", "LIMA", "LINCE", "ANCON"}},
		{name: "ascending", limit: 10, asc: true, want: []schema.DistrictID{"ANCON", "LIMA", "LINCE", "ATE"}},
		{name: "limit truncates", limit: 2, want: []schema.DistrictID{"ATE", "LIMA"}},
		{name: "zero limit keeps all", limit: 0, want: []schema.DistrictID{"ATE", "LIMA", "LINCE", "ANCON"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RankDistricts(rows, schema.CompositeScoreColumn, tt.limit, tt.asc)
			assert.Equal(t, tt.want, districts(got))
		})
	}

	// input order is untouched
	assert.Equal(t, []schema.DistrictID{"LIMA", "ATE", "LINCE", "ANCON"}, districts(rows))
}

func TestRankDistrictsEmpty(t *testing.T) {
	assert.Empty(t, RankDistricts(nil, schema.DensityColumn, 5, false))
}

func TestPosition(t *testing.T) {
	rows := []schema.JoinedRow{row("LIMA", 4), row("ATE", 7.5), row("ANCON", 1)}
	assert.Equal(t, 1, Position(rows, schema.CompositeScoreColumn, "ATE"))
	assert.Equal(t, 3, Position(rows, schema.CompositeScoreColumn, "ANCON"))
	assert.Equal(t, 0, Position(rows, schema.CompositeScoreColumn, "SURCO"))
}
